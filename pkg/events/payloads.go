package events

// StatusUpdatePayload is the payload for StatusUpdate events.
type StatusUpdatePayload struct {
	ConversationID string `json:"conversationId"`
	Timestamp      string `json:"timestamp"` // RFC3339Nano UTC
	Status         string `json:"status"`
	Details        string `json:"details,omitempty"`
	Iteration      int    `json:"iteration,omitempty"`
}

// ToolCallStartPayload is the payload for ToolCallStart events.
type ToolCallStartPayload struct {
	ConversationID string         `json:"conversationId"`
	Timestamp      string         `json:"timestamp"`
	ToolName       string         `json:"toolName"`
	ToolCallID     string         `json:"toolCallId"`
	Arguments      map[string]any `json:"arguments"`
	Iteration      int            `json:"iteration"`
}

// ToolCallResultPayload is the payload for ToolCallResult events.
type ToolCallResultPayload struct {
	ConversationID string `json:"conversationId"`
	Timestamp      string `json:"timestamp"`
	ToolName       string `json:"toolName"`
	ToolCallID     string `json:"toolCallId"`
	Result         string `json:"result"`
	Success        bool   `json:"success"`
	Iteration      int    `json:"iteration"`
}

// ResponseChunkPayload is the payload for ResponseChunk events.
type ResponseChunkPayload struct {
	ConversationID string `json:"conversationId"`
	Timestamp      string `json:"timestamp"`
	Content        string `json:"content"`
	Iteration      int    `json:"iteration"`
	IsFinalAnswer  bool   `json:"isFinalAnswer"`
}

// ReasoningTracePayload is the payload for ReasoningTrace events.
type ReasoningTracePayload struct {
	ConversationID string `json:"conversationId"`
	Timestamp      string `json:"timestamp"`
	Content        string `json:"content"`
	Stage          string `json:"stage"` // always PLANNING
	Iteration      int    `json:"iteration"`
}

// CompletedPayload is the payload of the Completed terminal event.
type CompletedPayload struct {
	ConversationID string `json:"conversationId"`
	Timestamp      string `json:"timestamp"`
	IterationsUsed int    `json:"iterationsUsed"`
	TokensUsed     int    `json:"tokensUsed"`
}

// ErrorPayload is the payload of the Error terminal event.
type ErrorPayload struct {
	ConversationID string `json:"conversationId"`
	Timestamp      string `json:"timestamp"`
	Error          string `json:"error"`
	Details        string `json:"details,omitempty"`
}

// NewStatusUpdate builds a StatusUpdate event. Iteration 0 omits the field.
func NewStatusUpdate(conversationID, status, details string, iteration int) StreamEvent {
	return StreamEvent{Name: EventStatusUpdate, Payload: StatusUpdatePayload{
		ConversationID: conversationID,
		Timestamp:      timestamp(),
		Status:         status,
		Details:        details,
		Iteration:      iteration,
	}}
}

// NewToolCallStart builds a ToolCallStart event.
func NewToolCallStart(conversationID, toolName, toolCallID string, arguments map[string]any, iteration int) StreamEvent {
	return StreamEvent{Name: EventToolCallStart, Payload: ToolCallStartPayload{
		ConversationID: conversationID,
		Timestamp:      timestamp(),
		ToolName:       toolName,
		ToolCallID:     toolCallID,
		Arguments:      arguments,
		Iteration:      iteration,
	}}
}

// NewToolCallResult builds a ToolCallResult event.
func NewToolCallResult(conversationID, toolName, toolCallID, result string, success bool, iteration int) StreamEvent {
	return StreamEvent{Name: EventToolCallResult, Payload: ToolCallResultPayload{
		ConversationID: conversationID,
		Timestamp:      timestamp(),
		ToolName:       toolName,
		ToolCallID:     toolCallID,
		Result:         result,
		Success:        success,
		Iteration:      iteration,
	}}
}

// NewResponseChunk builds a ResponseChunk event.
func NewResponseChunk(conversationID, content string, iteration int, isFinalAnswer bool) StreamEvent {
	return StreamEvent{Name: EventResponseChunk, Payload: ResponseChunkPayload{
		ConversationID: conversationID,
		Timestamp:      timestamp(),
		Content:        content,
		Iteration:      iteration,
		IsFinalAnswer:  isFinalAnswer,
	}}
}

// NewReasoningTrace builds a ReasoningTrace event.
func NewReasoningTrace(conversationID, content string, iteration int) StreamEvent {
	return StreamEvent{Name: EventReasoningTrace, Payload: ReasoningTracePayload{
		ConversationID: conversationID,
		Timestamp:      timestamp(),
		Content:        content,
		Stage:          StagePlanning,
		Iteration:      iteration,
	}}
}

// NewCompleted builds the Completed terminal event.
func NewCompleted(conversationID string, iterationsUsed, tokensUsed int) StreamEvent {
	return StreamEvent{Name: EventCompleted, Payload: CompletedPayload{
		ConversationID: conversationID,
		Timestamp:      timestamp(),
		IterationsUsed: iterationsUsed,
		TokensUsed:     tokensUsed,
	}}
}

// NewError builds the Error terminal event.
func NewError(conversationID, errMsg, details string) StreamEvent {
	return StreamEvent{Name: EventError, Payload: ErrorPayload{
		ConversationID: conversationID,
		Timestamp:      timestamp(),
		Error:          errMsg,
		Details:        details,
	}}
}
