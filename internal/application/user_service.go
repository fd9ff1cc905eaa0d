package application

import (
	"context"
	"errors"
	"expvar"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-registry/internal/domain/entity"
	repo "github.com/oksasatya/go-user-registry/internal/domain/repository"
	"github.com/oksasatya/go-user-registry/pkg/events"
	"github.com/oksasatya/go-user-registry/pkg/helpers"
)

var (
	usersCreated     = expvar.NewInt("users_created")
	usersUpdated     = expvar.NewInt("users_updated")
	usersDeactivated = expvar.NewInt("users_deactivated")
)

// EventPublisher delivers lifecycle events. helpers.RabbitPublisher is the
// production implementation.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserIndexer keeps a search index in step with committed users.
type UserIndexer interface {
	Index(ctx context.Context, u *entity.User) error
	Search(ctx context.Context, q string, size int) ([]int64, error)
}

type Service struct {
	Store      repo.Store
	Publisher  EventPublisher
	Indexer    UserIndexer
	Logger     *logrus.Logger
	BcryptCost int

	now func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mainly for tests around the age cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.Publisher = p }
}

func WithIndexer(ix UserIndexer) Option {
	return func(s *Service) { s.Indexer = ix }
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.BcryptCost = cost }
}

func NewService(store repo.Store, logger *logrus.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	s := &Service{Store: store, Logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserView is what callers outside the service get to see of a user.
type UserView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	BirthDate string    `json:"birth_date"`
	Phone     *string   `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func newView(u *entity.User) UserView {
	v := UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		BirthDate: u.BirthDate.Format("2006-01-02"),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
	if u.Phone != "" {
		phone := u.Phone
		v.Phone = &phone
	}
	return v
}

type CreateInput struct {
	Name      string
	Email     string
	Password  string
	BirthDate time.Time
	Phone     string
}

// UpdateInput overwrites every mutable field. Password is kept when empty
// and Active when nil.
type UpdateInput struct {
	Name      string
	Email     string
	Password  string
	BirthDate time.Time
	Phone     string
	Active    *bool
}

// clock returns the current instant in UTC at the precision both stores keep.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) List(ctx context.Context) ([]UserView, error) {
	sess, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Rollback(ctx) }()

	users, err := sess.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserView, 0, len(users))
	for i := range users {
		out = append(out, newView(&users[i]))
	}
	return out, nil
}

// Get reports found=false when no user has the id.
func (s *Service) Get(ctx context.Context, id int64) (UserView, bool, error) {
	sess, err := s.Store.Begin(ctx)
	if err != nil {
		return UserView{}, false, err
	}
	defer func() { _ = sess.Rollback(ctx) }()

	u, err := sess.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return UserView{}, false, nil
	}
	if err != nil {
		return UserView{}, false, err
	}
	return newView(u), true, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (UserView, error) {
	email := entity.NormalizeEmail(in.Email)

	sess, err := s.Store.Begin(ctx)
	if err != nil {
		return UserView{}, err
	}
	defer func() { _ = sess.Rollback(ctx) }()

	taken, err := sess.EmailExists(ctx, email)
	if err != nil {
		return UserView{}, err
	}
	if taken {
		return UserView{}, duplicateEmail(email, false)
	}

	now := s.clock()
	if !entity.IsAdult(in.BirthDate, now) {
		return UserView{}, underAge()
	}

	hash, err := helpers.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return UserView{}, err
	}

	u := &entity.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		BirthDate:    entity.DateOnly(in.BirthDate),
		Phone:        in.Phone,
		Active:       true,
		CreatedAt:    now,
	}
	if err := sess.Add(ctx, u); err != nil {
		return UserView{}, s.storeErr(err, email, false)
	}
	if _, err := sess.Commit(ctx); err != nil {
		return UserView{}, s.storeErr(err, email, false)
	}

	usersCreated.Add(1)
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user created")
	s.afterCommit(ctx, events.UserCreated, u)
	return newView(u), nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (UserView, error) {
	email := entity.NormalizeEmail(in.Email)

	sess, err := s.Store.Begin(ctx)
	if err != nil {
		return UserView{}, err
	}
	defer func() { _ = sess.Rollback(ctx) }()

	u, err := sess.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return UserView{}, userNotFound(id)
	}
	if err != nil {
		return UserView{}, err
	}

	taken, err := sess.EmailExistsForOtherUser(ctx, id, email)
	if err != nil {
		return UserView{}, err
	}
	if taken {
		return UserView{}, duplicateEmail(email, true)
	}

	now := s.clock()
	if !entity.IsAdult(in.BirthDate, now) {
		return UserView{}, underAge()
	}

	u.Name = in.Name
	u.Email = email
	u.BirthDate = entity.DateOnly(in.BirthDate)
	u.Phone = in.Phone
	if in.Active != nil {
		u.Active = *in.Active
	}
	if in.Password != "" {
		hash, err := helpers.HashPassword(in.Password, s.BcryptCost)
		if err != nil {
			return UserView{}, err
		}
		u.PasswordHash = hash
	}
	u.UpdatedAt = &now

	if err := sess.Update(ctx, u); err != nil {
		return UserView{}, s.storeErr(err, email, true)
	}
	if _, err := sess.Commit(ctx); err != nil {
		return UserView{}, s.storeErr(err, email, true)
	}

	usersUpdated.Add(1)
	s.Logger.WithField("user_id", u.ID).Info("user updated")
	s.afterCommit(ctx, events.UserUpdated, u)
	return newView(u), nil
}

// Remove deactivates the user. It reports false, without error, when the id
// is unknown.
func (s *Service) Remove(ctx context.Context, id int64) (bool, error) {
	sess, err := s.Store.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = sess.Rollback(ctx) }()

	u, err := sess.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := s.clock()
	u.Active = false
	u.UpdatedAt = &now
	if err := sess.Update(ctx, u); err != nil {
		return false, err
	}
	n, err := sess.Commit(ctx)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	usersDeactivated.Add(1)
	s.Logger.WithField("user_id", u.ID).Info("user deactivated")
	s.afterCommit(ctx, events.UserDeactivated, u)
	return true, nil
}

func (s *Service) EmailTaken(ctx context.Context, email string) (bool, error) {
	sess, err := s.Store.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = sess.Rollback(ctx) }()

	return sess.EmailExists(ctx, entity.NormalizeEmail(email))
}

// Search resolves index hits against the store, so results always reflect
// committed state. Hits whose user no longer exists are skipped. Without an
// indexer the result is empty.
func (s *Service) Search(ctx context.Context, q string, size int) ([]UserView, error) {
	if s.Indexer == nil {
		return []UserView{}, nil
	}
	ids, err := s.Indexer.Search(ctx, q, size)
	if err != nil {
		return nil, err
	}

	sess, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Rollback(ctx) }()

	out := make([]UserView, 0, len(ids))
	for _, id := range ids {
		u, err := sess.GetByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, newView(u))
	}
	return out, nil
}

// storeErr maps a unique index hit, lost to a concurrent writer after the
// pre-check passed, onto ErrDuplicateEmail.
func (s *Service) storeErr(err error, email string, other bool) error {
	if errors.Is(err, repo.ErrDuplicateEmail) {
		return duplicateEmail(email, other)
	}
	return err
}

// afterCommit publishes the lifecycle event and refreshes the search
// document. Failures are logged only; the write has already been committed.
func (s *Service) afterCommit(ctx context.Context, eventType string, u *entity.User) {
	fields := logrus.Fields{"user_id": u.ID, "event": eventType}

	if s.Publisher != nil {
		ev := events.UserEvent{
			Type:       eventType,
			UserID:     u.ID,
			Email:      u.Email,
			Name:       u.Name,
			OccurredAt: s.clock(),
		}
		if err := s.Publisher.PublishJSON(ctx, ev); err != nil {
			helpers.LogWarn(s.Logger, "publish user event failed", err, fields)
		}
	}
	if s.Indexer != nil {
		if err := s.Indexer.Index(ctx, u); err != nil {
			helpers.LogWarn(s.Logger, "es index failed", err, fields)
		}
	}
}
