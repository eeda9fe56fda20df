package ada

// Prompt text for the planner, evaluator, and synthesis stages. The markers
// embedded here (`<No searching needed>`, `<Fully answers user question>`,
// `depthN`, ...) are part of the wire convention between the models and the
// engine; the parsing side lives in planner.go and evaluator.go.

const plannerPrompt = `You convert a user question into effective web search queries.

TASK: Produce up to 4 search queries covering different angles of the
question: one broad/direct query, one alternative phrasing, one for
background context, and one narrow/specific query. Fewer is fine for simple
questions.

FORMAT:
- One query per line, nothing else.
- 3-10 words per query. Never use quotation marks.
- Append " depthN" to a line to request N result pages for that query
  (1-10, higher for complex questions). Example: latest GPU benchmarks depth6

EXCEPTION: If the question is conversational or so simple that no searching
is needed to answer and fact-check it, return ONLY '<No searching needed>'.
You HEAVILY favor searching over not searching.`

const plannerRetryPrompt = `The previous query did not surface enough information.
Produce a revised set of search queries for the same question, avoiding the
angle that failed. Same format: one query per line, optional " depthN" suffix.`

const followupPrompt = `This is a follow-up question in an ongoing conversation.
Decide whether answering it needs an internet search. Respond with <search>
if yes or <no search> if the conversation already contains the answer.`

const evaluatorPrompt = `Decide if the provided data fully answers the user's
question. "Fully" means the complete answer is present in the data.

If it does, respond with <Fully answers user question> and nothing else.
If it does not, respond with <Does not fully answer user question> followed
by two sentences describing what information is missing and what an internet
search could look for. Do not consider verbosity or style, only coverage.`

const answerPrompt = `You have been given text gathered from multiple web
sources. Answer the user's question from that text in an efficient, easy to
read, and expository way.

Guidelines:
- Be thorough and fully explain the topic unless the user asks otherwise.
- Prefer reputable sources and data corroborated by multiple sources.
- Include specific facts, quotes, and numbers when the text provides them.
- Use markdown: headings, bullet lists, bold for key data, code blocks for code.
- Open with a short friendly introduction (1-2 sentences), close with a
  suggested follow-up question, then list every source as
  "Source_Name: https://source_link".
- If the search data is partial or degraded, say so and answer from what is
  available.`

const noSearchAnswerPrompt = `No search data has been gathered for this
question. Answer truthfully from your own knowledge, and say so when you are
not certain.`

const summarizerPrompt = `Summarize the given chunk of research data source by
source. For each source output its name, its link, then every piece of
information from it that could relate to the user's question: opinions,
numbers, data points, quotes. Do not answer the question itself; only
condense the data. Be verbose rather than selective.`

const compressorPrompt = `Summarize the following conversation turns concisely.
Preserve key facts, data values, decisions, and open questions. Omit
pleasantries and redundant details.`
