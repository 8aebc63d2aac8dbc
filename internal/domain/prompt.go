package domain

// Prompt is one moderator question plus whose turn it is to answer.
type Prompt struct {
	Question    string
	SpeakerTurn string
}

// DefaultPrompts is the fixed session script, advanced by the Initiator.
func DefaultPrompts() []Prompt {
	return []Prompt{
		{Question: "To start, what was a personal or professional win for you this past week?", SpeakerTurn: "Peer A"},
		{Question: "That's great to hear. Peer B, how about you? What was a win for you?", SpeakerTurn: "Peer B"},
		{Question: "Now, let's talk about challenges. Peer A, what's one challenge you're currently facing?", SpeakerTurn: "Peer A"},
		{Question: "And for you, Peer B?", SpeakerTurn: "Peer B"},
		{Question: "Thinking about those challenges, what's one small step you could each take to move forward? Let's start with Peer A.", SpeakerTurn: "Peer A"},
		{Question: "Peer B, your thoughts on a small step?", SpeakerTurn: "Peer B"},
		{Question: "Finally, what is the key takeaway for each of you from our session today? Peer A, you first.", SpeakerTurn: "Peer A"},
		{Question: "And Peer B, your key takeaway?", SpeakerTurn: "Peer B"},
	}
}
