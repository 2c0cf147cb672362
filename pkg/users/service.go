package users

import (
	"context"

	apperrors "github.com/identkit/userhub/pkg/errors"
	"github.com/identkit/userhub/pkg/interfaces"
)

// Service orchestrates the credential store, hasher, token service, and
// uniqueness validator to implement the identity operations. Every returned
// User is redacted.
type Service struct {
	store  *Repository
	hasher Hasher
	tokens *TokenService
	unique *UniqueValidator
	log    interfaces.Logger
}

// NewService wires the identity service from its collaborators.
func NewService(store *Repository, hasher Hasher, tokens *TokenService, unique *UniqueValidator, log interfaces.Logger) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		unique: unique,
		log:    log,
	}
}

// Create hashes the password and persists a new identity. The fast-path
// uniqueness check runs first; a race that slips past it is still rejected
// by the store's unique index.
func (s *Service) Create(ctx context.Context, p CreateParams) (*User, error) {
	if errs := s.unique.CheckAll(ctx, []Constraint{
		{Table: "users", Field: "email", Value: p.Email},
	}); len(errs) > 0 {
		return nil, apperrors.NewDuplicateEmail(p.Email)
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:    p.Email,
		Name:     p.Name,
		Password: hash,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user created", map[string]interface{}{"user_id": user.ID})
	return user.Redacted(), nil
}

// FindByID retrieves an identity by id.
func (s *Service) FindByID(ctx context.Context, id uint) (*User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFound("user not found")
	}
	return user.Redacted(), nil
}

// FindByEmail retrieves an identity by email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFound("user not found")
	}
	return user.Redacted(), nil
}

// List returns all identities.
func (s *Service) List(ctx context.Context) ([]User, error) {
	stored, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]User, len(stored))
	for i, u := range stored {
		out[i] = *u.Redacted()
	}
	return out, nil
}

// Update modifies an existing identity. A changed email is re-checked for
// uniqueness against other identities; a present password is re-hashed
// before persisting.
func (s *Service) Update(ctx context.Context, id uint, p UpdateParams) (*User, error) {
	return s.update(ctx, id, p, true)
}

// UpdateWithoutPassword modifies the non-credential fields only, preserving
// the stored hash regardless of the input.
func (s *Service) UpdateWithoutPassword(ctx context.Context, id uint, p UpdateParams) (*User, error) {
	return s.update(ctx, id, p, false)
}

func (s *Service) update(ctx context.Context, id uint, p UpdateParams, allowPassword bool) (*User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFound("user not found")
	}

	if p.Email != "" {
		if errs := s.unique.CheckAll(ctx, []Constraint{
			{Table: "users", Field: "email", Value: p.Email, ExcludeID: id},
		}); len(errs) > 0 {
			return nil, apperrors.NewDuplicateEmail(p.Email)
		}
		user.Email = p.Email
	}
	if p.Name != "" {
		user.Name = p.Name
	}
	if allowPassword && p.Password != "" {
		hash, err := s.hasher.Hash(p.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hash
	}

	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user updated", map[string]interface{}{"user_id": user.ID})
	return user.Redacted(), nil
}

// Delete removes an identity and returns the removed record. Repeated
// deletes of the same id keep failing with not-found.
func (s *Service) Delete(ctx context.Context, id uint) (*User, error) {
	user, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info("user deleted", map[string]interface{}{"user_id": id})
	return user.Redacted(), nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password produce the identical unauthorized error, so callers cannot
// probe which emails exist.
func (s *Service) Login(ctx context.Context, p LoginParams) (*LoginResult, error) {
	user, err := s.store.GetByEmail(ctx, p.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.hasher.Verify(p.Password, user.Password) {
		return nil, apperrors.NewUnauthorized()
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in", map[string]interface{}{"user_id": user.ID})
	return &LoginResult{User: user.Redacted(), Token: token}, nil
}

// Bootstrap seeds an initial identity when the store is empty. All CRUD
// routes sit behind the guard, so a fresh deployment needs one account to
// obtain the first token.
func (s *Service) Bootstrap(ctx context.Context, email, name, password string) error {
	n, err := s.store.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	user := &User{Email: email, Name: name, Password: hash}
	if err := s.store.Create(ctx, user); err != nil {
		return err
	}

	s.log.Info("bootstrap user seeded", map[string]interface{}{"user_id": user.ID, "email": email})
	return nil
}
