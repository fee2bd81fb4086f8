// Package chat answers natural-language questions about the location tables
// by letting a language model query them through SQL.
package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/presentation/formatter"
	"github.com/penwyp/go-timeline-chat/internal/store"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

var (
	ErrUnknownConversation = errors.New("unknown conversation")
	ErrNoAnswer            = errors.New("no answer within the step limit")
	ErrEmptyQuestion       = errors.New("empty question")
)

const answerPrefix = "ANSWER:"

var sqlBlock = regexp.MustCompile("(?s)```(?:sql|SQL)?\\s*\n(.*?)```")

// Options bounds the agent loop
type Options struct {
	MaxSteps int
	MaxRows  int
	Home     string
	Work     string
}

// Conversation is the history of one chat, without the system prompt.
type Conversation struct {
	ID       string
	Messages []Message
	Updated  time.Time

	mu sync.Mutex
}

// Answer is the result of one question.
type Answer struct {
	ConversationID string   `json:"conversation_id"`
	Text           string   `json:"answer"`
	Queries        []string `json:"queries,omitempty"`
	Steps          int      `json:"steps"`
}

// Agent runs the question/query/answer loop against a store.
type Agent struct {
	completer Completer
	store     *store.Store
	opts      Options
	logger    *util.Logger
	now       func() time.Time

	mu            sync.Mutex
	conversations map[string]*Conversation
}

func NewAgent(completer Completer, st *store.Store, opts Options) *Agent {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 4
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 50
	}
	return &Agent{
		completer:     completer,
		store:         st,
		opts:          opts,
		logger:        util.Named("chat"),
		now:           time.Now,
		conversations: make(map[string]*Conversation),
	}
}

// Conversation returns a conversation by ID
func (a *Agent) Conversation(id string) (*Conversation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.conversations[id]
	return c, ok
}

func (a *Agent) conversation(id string) (*Conversation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id == "" {
		c := &Conversation{ID: uuid.NewString(), Updated: a.now()}
		a.conversations[c.ID] = c
		return c, nil
	}
	c, ok := a.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	return c, nil
}

// Ask answers a question within a conversation. An empty conversationID starts a new one.
// The history only grows when an answer is produced.
func (a *Agent) Ask(ctx context.Context, conversationID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	conv, err := a.conversation(conversationID)
	if err != nil {
		return nil, err
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()

	system, err := a.systemPrompt(ctx)
	if err != nil {
		return nil, err
	}

	turn := []Message{{Role: RoleUser, Content: question}}
	answer := &Answer{ConversationID: conv.ID}
	log := a.logger.With(util.String("conversation", conv.ID))

	for step := 1; step <= a.opts.MaxSteps; step++ {
		messages := make([]Message, 0, len(conv.Messages)+len(turn)+1)
		messages = append(messages, Message{Role: RoleSystem, Content: system})
		messages = append(messages, conv.Messages...)
		messages = append(messages, turn...)

		start := time.Now()
		reply, err := a.completer.Complete(ctx, messages)
		if err != nil {
			return nil, err
		}
		answer.Steps = step
		turn = append(turn, Message{Role: RoleAssistant, Content: reply})
		log.Debug("Model replied", util.Int("step", step), util.Duration("took", time.Since(start)))

		text, query := parseReply(reply)
		if query == "" {
			answer.Text = text
			conv.Messages = append(conv.Messages, turn...)
			conv.Updated = a.now()
			return answer, nil
		}

		answer.Queries = append(answer.Queries, query)
		turn = append(turn, Message{Role: RoleUser, Content: a.runQuery(ctx, query)})
		log.Debug("Ran query", util.String("sql", query))
	}

	log.Warn("No answer within step limit", util.Int("steps", a.opts.MaxSteps))
	return answer, ErrNoAnswer
}

// runQuery executes a model-requested query and renders the result or error as a message.
func (a *Agent) runQuery(ctx context.Context, query string) string {
	res, err := a.store.Query(ctx, query, a.opts.MaxRows)
	if err != nil {
		return fmt.Sprintf("Query error: %v\nFix the query or answer with what you know.", err)
	}

	var buf bytes.Buffer
	buf.WriteString("Query result:\n")
	in := &formatter.Input{Tables: []model.Table{res.Table()}}
	if err := formatter.NewCSVFormatter().Format(&buf, in); err != nil {
		return fmt.Sprintf("Query error: %v", err)
	}
	if len(res.Rows) == 0 {
		buf.WriteString("(no rows)\n")
	}
	if res.Truncated {
		fmt.Fprintf(&buf, "(only the first %d rows are shown)\n", a.opts.MaxRows)
	}
	return buf.String()
}

// parseReply splits a model reply into a final answer or a query request.
// An ANSWER: line wins over a query block; a reply with neither is taken as the answer.
func parseReply(reply string) (answer, query string) {
	if i := strings.Index(reply, answerPrefix); i >= 0 {
		return strings.TrimSpace(reply[i+len(answerPrefix):]), ""
	}
	if m := sqlBlock.FindStringSubmatch(reply); m != nil {
		if q := strings.TrimSpace(m[1]); q != "" {
			return "", q
		}
	}
	return strings.TrimSpace(reply), ""
}
