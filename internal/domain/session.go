// Package domain contains entity without logic, just meta-data
package domain

// Role is assigned once when a session flow starts and never changes:
// the Initiator mints the session link, the Joiner consumes it.
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleJoiner    Role = "joiner"
)

// Speaker tags a transcript fragment by origin.
type Speaker string

const (
	SpeakerSelf        Speaker = "self"
	SpeakerRemoteAgent Speaker = "remote-agent"
)

// Label is the name the speaker carries in the flushed transcript.
func (s Speaker) Label() string {
	if s == SpeakerRemoteAgent {
		return "Kelly"
	}
	return "You"
}

// TranscriptEntry is one fragment of the session transcript.
// Seq reflects arrival order.
type TranscriptEntry struct {
	Speaker Speaker
	Text    string
	Seq     int
}

// RiskAlert flags a sensitive term spotted in the transcript. At most one
// is outstanding at a time; a new match is suppressed until the active
// alert is dismissed.
type RiskAlert struct {
	Term    string
	Message string
}
