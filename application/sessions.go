package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

// Session types.
const (
	SessionTypeDesktop    = 1
	SessionTypeWebService = 2
	SessionTypeWeb        = 3
)

// Session is an authenticated connection of a user.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Type      int       `json:"type"`
	IPAddress string    `json:"ipAddress"`
	Created   time.Time `json:"created"`
	LastUsed  time.Time `json:"lastUsed"`
}

// sessionStore holds the open sessions, at most one per user and session type.
type sessionStore struct {
	lock    sync.Mutex
	ttl     time.Duration
	clock   func() time.Time
	byToken map[string]*Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{clock: time.Now, byToken: map[string]*Session{}}
}

func (s *sessionStore) add(sess *Session) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for token, old := range s.byToken {
		if old.UserID == sess.UserID && old.Type == sess.Type {
			log.Debug("replacing session of {{user}}", "user", old.UserName)
			delete(s.byToken, token)
		}
	}
	s.byToken[sess.Token] = sess
}

// get returns a valid session and marks it used. Expired sessions are dropped.
func (s *sessionStore) get(token, ip string) (*Session, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	sess := s.byToken[token]
	if sess == nil {
		return nil, errs.NotAuthorizedf("invalid session")
	}
	if sess.IPAddress != ip {
		return nil, errs.NotAuthorizedf("this session can not be used from %s", ip)
	}
	t := s.clock()
	if s.expired(sess, t) {
		delete(s.byToken, token)
		return nil, errs.NotAuthorizedf("the session has expired")
	}
	sess.LastUsed = t
	c := *sess
	return &c, nil
}

func (s *sessionStore) expired(sess *Session, t time.Time) bool {
	return s.ttl > 0 && t.Sub(sess.LastUsed) > s.ttl
}

// lookup returns a valid session without marking it used.
func (s *sessionStore) lookup(token string) (*Session, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	sess := s.byToken[token]
	if sess == nil {
		return nil, errs.NotAuthorizedf("invalid session")
	}
	if s.expired(sess, s.clock()) {
		delete(s.byToken, token)
		return nil, errs.NotAuthorizedf("the session has expired")
	}
	c := *sess
	return &c, nil
}

func (s *sessionStore) remove(token string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.byToken, token)
}

func (s *sessionStore) removeUser(userID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for token, sess := range s.byToken {
		if sess.UserID == userID {
			delete(s.byToken, token)
		}
	}
}

func (s *sessionStore) list() []Session {
	s.lock.Lock()
	defer s.lock.Unlock()
	result := make([]Session, 0, len(s.byToken))
	for _, sess := range s.byToken {
		if s.expired(sess, s.clock()) {
			continue
		}
		result = append(result, *sess)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Created.Equal(result[j].Created) {
			return result[i].Created.Before(result[j].Created)
		}
		return result[i].Token < result[j].Token
	})
	return result
}

// CreateSession authenticates a user and opens a session. An existing
// session of the same user and type is closed.
func (r *Repository) CreateSession(ctx context.Context, name, password string, typ int, ip string) (*Session, error) {
	switch typ {
	case SessionTypeDesktop, SessionTypeWebService, SessionTypeWeb:
	default:
		return nil, errs.InvalidArgumentf("invalid session type %d", typ)
	}
	var user *User
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := tx.FindNode(ctx, graph.LabelUsers, graph.PropName, name)
		if err != nil {
			if errors.Is(err, graph.ErrNotFound) {
				return errs.ApplicationObjectNotFound("user", name)
			}
			return err
		}
		user, err = users.FromNode(n)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, errs.NotAuthorizedf("the user %s is not enabled", name)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errs.NotAuthorizedf("wrong user name or password")
	}
	t := r.sessions.clock()
	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		UserName:  user.Name,
		Type:      typ,
		IPAddress: ip,
		Created:   t,
		LastUsed:  t,
	}
	r.sessions.add(sess)
	log.Info("opened session for {{user}} from {{ip}}", "user", name, "ip", ip)
	c := *sess
	return &c, nil
}

// ValidateCall checks that token identifies an open session used from ip.
func (r *Repository) ValidateCall(method, ip, token string) (*Session, error) {
	sess, err := r.sessions.get(token, ip)
	if err != nil {
		log.Debug("rejected call {{method}} from {{ip}}", "method", method, "ip", ip)
		return nil, err
	}
	log.Trace("call {{method}} by {{user}}", "method", method, "user", sess.UserName)
	return sess, nil
}

// CloseSession ends a session.
func (r *Repository) CloseSession(token, ip string) error {
	sess, err := r.sessions.get(token, ip)
	if err != nil {
		return err
	}
	r.sessions.remove(token)
	log.Info("closed session of {{user}}", "user", sess.UserName)
	return nil
}

// UserInSession returns the user of an open session.
func (r *Repository) UserInSession(ctx context.Context, token string) (*User, error) {
	sess, err := r.sessions.lookup(token)
	if err != nil {
		return nil, err
	}
	return r.GetUser(ctx, sess.UserID)
}

// Sessions returns the open sessions ordered by creation time.
func (r *Repository) Sessions() []Session {
	return r.sessions.list()
}
