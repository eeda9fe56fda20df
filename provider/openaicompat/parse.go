package openaicompat

import ada "github.com/adalabs/ada"

// ParseResponse converts an OpenAI-format ChatResponse to the engine's
// ChatResponse. Content and usage come from choices[0].
func ParseResponse(resp ChatResponse) (ada.ChatResponse, error) {
	var out ada.ChatResponse

	if len(resp.Choices) == 0 {
		return out, nil
	}
	if msg := resp.Choices[0].Message; msg != nil {
		out.Content = msg.Content
	}
	if resp.Usage != nil {
		out.Usage = ada.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	return out, nil
}
