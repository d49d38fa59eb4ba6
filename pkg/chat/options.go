package chat

// SendOptions configures one send/stream cycle.
type SendOptions struct {
	Model        string   `json:"model,omitempty"`
	Temperature  float64  `json:"temperature,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
	Stream       bool     `json:"stream"`
	Voice        bool     `json:"voice,omitempty"`
	ToolsEnabled bool     `json:"tools_enabled,omitempty"`
	Tools        []string `json:"tools,omitempty"`
}

// WithDefaults fills unset fields from the session's model configuration.
func (o SendOptions) WithDefaults(s Session) SendOptions {
	if o.Model == "" {
		o.Model = s.Model
	}
	if s.ModelConfig != nil {
		if o.Temperature == 0 {
			o.Temperature = s.ModelConfig.Temperature
		}
		if o.MaxTokens == 0 {
			o.MaxTokens = s.ModelConfig.MaxTokens
		}
	}
	return o
}
