// Package session 单个用户的会话控制器，一次只处理一个动作
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xyzj/cherrybot/llms"
	"github.com/xyzj/cherrybot/llms/history"
	"github.com/xyzj/cherrybot/logger"
)

type State byte

const (
	Idle             State = iota // no unsaved turns
	Composing                     // turns appended since the last new chat or select
	AwaitingResponse              // user turn appended, backend call in flight
)

func (s State) String() string {
	switch s {
	case Composing:
		return "composing"
	case AwaitingResponse:
		return "awaiting_response"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Opt struct {
	model     string
	completer llms.Completer
	autoSave  bool
	logg      logger.Logger
}
type Opts func(opt *Opt)

// OptModel model name sent with every chat request, empty means the client default
func OptModel(s string) Opts {
	return func(o *Opt) {
		o.model = s
	}
}

// OptAutoSave save the conversation after every successful exchange
func OptAutoSave(b bool) Opts {
	return func(o *Opt) {
		o.autoSave = b
	}
}

func OptLogger(l logger.Logger) Opts {
	return func(o *Opt) {
		if l != nil {
			o.logg = l
		}
	}
}

// Snapshot what the page renders
type Snapshot struct {
	State State           `json:"state"`
	ID    uint64          `json:"id"`
	Turns []*llms.Message `json:"turns"`
}

// Session owns one conversation state and the id it is saved under
type Session struct {
	locker    sync.Mutex
	chat      llms.Chatter
	store     llms.Storage
	history   *history.ChatHistory
	state     State
	currentID uint64
	created   int64
	ended     bool
	opt       *Opt
}

// Submit appends the user turn and asks the backend for the reply.
// f receives streamed chunks, nil waits for the whole reply.
//
// On backend failure the user turn stays and the session goes back to Composing.
// A failed autosave is returned together with the reply, the turns are kept.
func (s *Session) Submit(ctx context.Context, text string, f func([]byte) error) (*llms.Message, error) {
	s.locker.Lock()
	if s.state == AwaitingResponse {
		s.locker.Unlock()
		return nil, llms.ErrBusy
	}
	if err := s.history.Store(&llms.Message{Role: llms.RoleUser, Content: text}); err != nil {
		s.locker.Unlock()
		return nil, err
	}
	s.state = AwaitingResponse
	req := &llms.ChatRequest{
		Messages: s.history.Slice(),
		Model:    s.opt.model,
	}
	s.locker.Unlock()

	reply, err := s.chat.Chat(ctx, req, f)

	s.locker.Lock()
	defer s.locker.Unlock()
	s.state = Composing
	if err != nil {
		s.opt.logg.Warning("[SESSION] chat failed: " + err.Error())
	} else {
		err = s.history.Store(reply)
	}
	if s.ended {
		// 等待期间会话已结束，不论是否自动保存都要落盘
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second*10)
		defer cancel()
		if serr := s.save(sctx); serr != nil {
			s.opt.logg.Error("[SESSION] save ended session failed: " + serr.Error())
			if err == nil {
				return reply.Clone(), serr
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if s.opt.autoSave && !s.ended {
		if err = s.save(ctx); err != nil {
			s.opt.logg.Error("[SESSION] autosave failed: " + err.Error())
			return reply.Clone(), err
		}
	}
	return reply.Clone(), nil
}

// save writes the turns under the current id, caller holds the lock
func (s *Session) save(ctx context.Context) error {
	c := llms.NewConversation(s.history.Slice()...)
	if s.created > 0 {
		c.Created = s.created
	}
	id, err := s.store.Save(ctx, s.currentID, c)
	if errors.Is(err, llms.ErrNotFound) {
		// 已被其他会话删除，另存为新记录
		id, err = s.store.Save(ctx, 0, c)
	}
	if err != nil {
		return err
	}
	s.currentID = id
	s.created = c.Created
	return nil
}

// NewChat saves the current turns then starts over. Nothing is cleared when the save fails.
func (s *Session) NewChat(ctx context.Context) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.state == AwaitingResponse {
		return llms.ErrBusy
	}
	if s.history.Len() > 0 {
		if err := s.save(ctx); err != nil {
			s.opt.logg.Error("[SESSION] save before new chat failed: " + err.Error())
			return err
		}
	}
	s.reset()
	return nil
}

// End finishes the session for good and saves its turns.
// While a reply is awaited the save is left to that Submit, which does it once the backend answers.
func (s *Session) End(ctx context.Context) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.ended = true
	if s.state == AwaitingResponse || s.history.Len() == 0 {
		return nil
	}
	return s.save(ctx)
}

func (s *Session) reset() {
	s.history.Clear()
	s.currentID = 0
	s.created = 0
	s.state = Idle
}

// Select replaces the current turns with a stored conversation
func (s *Session) Select(ctx context.Context, id uint64) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.state == AwaitingResponse {
		return llms.ErrBusy
	}
	c, err := s.store.Load(ctx, id)
	if err != nil {
		return err
	}
	s.history.Replace(c.Turns)
	s.currentID = id
	s.created = c.Created
	s.state = Composing
	return nil
}

// Delete removes a stored conversation, deleting the current one resets the session
func (s *Session) Delete(ctx context.Context, id uint64) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.state == AwaitingResponse {
		return llms.ErrBusy
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if id > 0 && id == s.currentID {
		s.reset()
	}
	return nil
}

// Generate single-shot completion, the conversation is not touched
func (s *Session) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.Wrap(llms.ErrValidation, "empty prompt")
	}
	if maxTokens < 1 {
		return "", errors.Wrap(llms.ErrValidation, "max tokens must be at least 1")
	}
	if s.opt.completer == nil {
		return "", errors.Wrap(llms.ErrBackendUnavailable, "no completion backend")
	}
	return s.opt.completer.Generate(ctx, prompt, maxTokens)
}

func (s *Session) List(ctx context.Context) ([]*llms.Conversation, error) {
	return s.store.List(ctx)
}

func (s *Session) Turns() []*llms.Message {
	return s.history.Slice()
}

func (s *Session) State() State {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.state
}

func (s *Session) CurrentID() uint64 {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.currentID
}

func (s *Session) Snapshot() *Snapshot {
	s.locker.Lock()
	defer s.locker.Unlock()
	return &Snapshot{
		State: s.state,
		ID:    s.currentID,
		Turns: s.history.Slice(),
	}
}

// New session in Idle with an empty conversation
func New(chat llms.Chatter, store llms.Storage, opts ...Opts) *Session {
	opt := &Opt{
		autoSave: true,
		logg:     logger.NewNilLogger(),
	}
	if c, ok := chat.(llms.Completer); ok {
		opt.completer = c
	}
	for _, o := range opts {
		o(opt)
	}
	return &Session{
		chat:    chat,
		store:   store,
		history: history.NewChatHistory(),
		opt:     opt,
	}
}
