package realtime

import (
	"context"
	"strings"
)

// ParticipantKind tags a room participant. The room service assigns the
// kind at join time; the core only distinguishes agents from everyone else.
type ParticipantKind string

const (
	KindStandard ParticipantKind = "standard"
	KindAgent    ParticipantKind = "agent"
)

// Participant is a member of a realtime room.
type Participant struct {
	Identity string
	Kind     ParticipantKind
}

// Room is the realtime room collaborator: a participant list the core can
// query and a departure notification that drives session shutdown.
type Room interface {
	Name() string
	Participants(ctx context.Context) ([]Participant, error)
	OnParticipantDisconnected(handler func(Participant))
	Disconnect() error
}

// TranscriptionEvent carries one recognized speech segment.
type TranscriptionEvent struct {
	Text string
}

// ConversationItem carries one completed conversational turn. Content is a
// list of fragments as delivered by the provider.
type ConversationItem struct {
	Role    string
	Content []string
}

// Text flattens the content fragments into a single string.
func (it ConversationItem) Text() string {
	return strings.Join(it.Content, "")
}

// ConversationConfig configures a realtime conversation session.
// TranscriptionMode is a capability flag passed through to the provider;
// "transcribe" forces speech recognition in the spoken language rather
// than translation.
type ConversationConfig struct {
	Instructions      string
	Voice             string
	Language          string
	TranscriptionMode string
}

// Conversation is the realtime session collaborator: the live wiring
// between the agent's speech pipeline and a room. Event handlers must be
// registered before Start and are invoked from the provider's read loop.
type Conversation interface {
	Start(ctx context.Context, cfg ConversationConfig) error
	// GenerateReply asks the provider to produce one agent turn from the
	// given instructions. Callers are expected to gate this call; the
	// provider enforces its own request timeout.
	GenerateReply(ctx context.Context, instructions string) error
	OnTranscription(handler func(TranscriptionEvent))
	OnConversationItem(handler func(ConversationItem))
	Close(ctx context.Context) error
}

// Generator is the request/response reasoning collaborator, used outside a
// live conversation (e.g. post-session summaries). Calls must be wrapped
// by the process-wide gate.
type Generator interface {
	Generate(ctx context.Context, instructions, prompt string) (string, error)
}

// Avatar is the optional avatar-rendering collaborator. It joins the room
// before the conversation starts and is torn down on shutdown.
type Avatar interface {
	Start(ctx context.Context, room Room) error
	Close(ctx context.Context) error
}
