package constant

// Canned interaction texts. Kept as constants so the spoken surface of the
// agent is reviewable in one place.

const (
	GreetingResponse = "Hello, I am a health assistant. I am not a doctor. " +
		"I will ask you some questions to help a doctor understand your condition. " +
		"Can you tell me what is bothering you?"

	ConsentRequestResponse = "Thank you for telling me about your condition. " +
		"I would like to take a photo of the affected area to help the doctor. " +
		"Is that okay with you? Please say yes or no."

	ConsentGrantedResponse = "Thank you. I will now take a photo. Please hold still."

	ConsentDeniedResponse = "That is okay. We will continue without a photo. " +
		"Can you describe what the affected area looks like?"

	EscalationResponse = "Based on what you have told me, a doctor should look at this urgently. " +
		"I am marking your case for immediate review. Please stay available."

	DeEscalationResponse = "It sounds like what you are describing may not be a skin condition. " +
		"Things like paint, tattoos, or henna are not medical issues. " +
		"If you have a different concern, I am happy to help. " +
		"Otherwise, there is nothing to worry about."

	AnalysisCompleteResponse = "Thank you. I have compared your case with similar reference cases " +
		"and prepared a summary for the doctor. I will now explain what I found."

	ExplanationDeliveredResponse = "That completes our conversation. A doctor will review your case. " +
		"Thank you for your patience."

	ModelFallbackResponse = "I am having trouble generating a detailed answer right now. " +
		"Can you tell me more about your skin condition?"

	AwaitingImageResponse = "I am waiting for the photo of the affected area. " +
		"Please hold the camera steady over the spot."

	ExplanationFallbackResponse = "I have recorded everything you told me. " +
		"A doctor will review your case and explain the findings to you."

	InterviewDisclaimer = "I am an AI assistant, not a doctor. My assessment is for informational purposes only. " +
		"Please seek professional medical help for proper evaluation and treatment."

	ExplanationDisclaimer = "Remember, I am not a doctor. Please visit a healthcare center " +
		"for proper medical care."
)

// Prompt templates for the language model.

const (
	FollowUpPromptTemplate = "Patient says: '%s'\n\n" +
		"You are a medical triage assistant (NOT a doctor). " +
		"Ask a follow-up question to better understand the skin condition. " +
		"Keep your response simple and clear for an illiterate patient."

	NotePromptTemplate = "Write a concise SOAP-style clinical note for a dermatology triage case.\n\n" +
		"Interview transcript:\n%s\n" +
		"%s\n" +
		"Do not invent findings that are not supported by the transcript."

	ExplanationPromptTemplate = "Based on this assessment:\n%s\n\n" +
		"Generate a simple, reassuring explanation for a patient " +
		"who may not be literate. Use short sentences. " +
		"Do NOT prescribe medication or make a definitive diagnosis. " +
		"Always recommend seeing a doctor."
)

// Event type codes published on the bus.
const (
	EventCaseEscalated = "CASE_ESCALATED"
	EventCaseFinalized = "CASE_FINALIZED"
)
