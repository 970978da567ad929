package models

// InferenceRequest is the payload of the remote emotion inference service.
type InferenceRequest struct {
	Text string `json:"text"`
}

// InferenceResponse holds one raw logit per class, in label catalog order.
type InferenceResponse struct {
	Logits []float64 `json:"logits"`
	Labels []string  `json:"labels,omitempty"`
}

// ASRResponse is the reply of the remote speech recognition service.
type ASRResponse struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}
