// Package manager 会话管理，每个浏览器一个会话，过期后自动保存并销毁
package manager

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/xyzj/cherrybot/cache"
	"github.com/xyzj/cherrybot/llms"
	"github.com/xyzj/cherrybot/llms/session"
	"github.com/xyzj/cherrybot/logger"
)

type (
	Opt struct {
		lifeTime    time.Duration
		cleanup     time.Duration
		logg        logger.Logger
		sessionOpts []session.Opts
	}
	Opts func(opt *Opt)

	// SessionManager all sessions share one store and one inference client
	SessionManager struct {
		chat     llms.Chatter
		data     llms.Storage
		sessions *cache.AnyCache[*session.Session]
		opt      *Opt
	}
)

// OptSessionLifeTime idle time after which a session is destroyed
func OptSessionLifeTime(t time.Duration) Opts {
	return func(o *Opt) {
		if t > 0 {
			o.lifeTime = t
		}
	}
}

// OptCleanup how often expired sessions are looked for
func OptCleanup(t time.Duration) Opts {
	return func(o *Opt) {
		o.cleanup = t
	}
}

func OptLogger(l logger.Logger) Opts {
	return func(o *Opt) {
		if l != nil {
			o.logg = l
		}
	}
}

// OptSessionOpts options for every new session
func OptSessionOpts(opts ...session.Opts) Opts {
	return func(o *Opt) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// Get the live session of key, its lifetime is extended
func (m *SessionManager) Get(key string) (*session.Session, bool) {
	s, ok := m.sessions.Load(key)
	if ok {
		m.sessions.Extension(key)
	}
	return s, ok
}

// GetOrCreate returns the session of key, or a new one under a new key
func (m *SessionManager) GetOrCreate(key string) (string, *session.Session) {
	if _, err := uuid.Parse(key); err == nil {
		if s, ok := m.Get(key); ok {
			return key, s
		}
	}
	key = uuid.NewString()
	s, _ := m.sessions.LoadOrStore(key, m.newSession())
	m.opt.logg.Debug("[SESSION] create " + key)
	return key, s
}

func (m *SessionManager) newSession() *session.Session {
	opts := append([]session.Opts{session.OptLogger(m.opt.logg)}, m.opt.sessionOpts...)
	return session.New(m.chat, m.data, opts...)
}

// Remove ends a session, its turns are saved first.
// A reply still in flight is saved by its Submit when it arrives
func (m *SessionManager) Remove(key string) bool {
	s, ok := m.sessions.Delete(key)
	if ok {
		m.end(key, s)
	}
	return ok
}

func (m *SessionManager) end(key string, s *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := s.End(ctx); err != nil {
		m.opt.logg.Error("[SESSION] save " + key + " error: " + err.Error())
	}
	m.opt.logg.Debug("[SESSION] end " + key)
}

func (m *SessionManager) Len() int {
	return m.sessions.Len()
}

// Storage the store shared by all sessions
func (m *SessionManager) Storage() llms.Storage {
	return m.data
}

// Close ends every session and closes the store
func (m *SessionManager) Close() error {
	m.sessions.ForEach(func(key string, s *session.Session) bool {
		m.end(key, s)
		return true
	})
	m.sessions.Close()
	return m.data.Close()
}

func New(chat llms.Chatter, store llms.Storage, opts ...Opts) *SessionManager {
	opt := &Opt{
		lifeTime: time.Hour * 24,
		logg:     logger.NewNilLogger(),
	}
	for _, o := range opts {
		o(opt)
	}
	m := &SessionManager{
		chat: chat,
		data: store,
		opt:  opt,
	}
	m.sessions = cache.NewAnyCacheWithExpireFunc(opt.lifeTime, func(ex map[string]*session.Session) {
		for k, s := range ex {
			m.end(k, s)
		}
	})
	if opt.cleanup > 0 {
		m.sessions.SetCleanUp(opt.cleanup)
	}
	return m
}
