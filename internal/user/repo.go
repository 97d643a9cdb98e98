package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfectpay-backend/internal/currency"
	"perfectpay-backend/internal/ledger"
)

var (
	ErrNotFound         = errors.New("user: not found")
	ErrMerchantNotFound = errors.New("user: merchant not found")
	ErrAlreadyExists    = errors.New("user: phone number or email already registered")
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const userColumns = `id, phone_number, pin, COALESCE(name,''), COALESCE(email,''), COALESCE(password,''), language, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.PhoneNumber, &u.PIN, &u.Name, &u.Email, &u.Password,
		&u.Language, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) ByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *Repo) ByPhone(ctx context.Context, phone string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phone))
}

// ByPhoneOrEmail supports login with either identifier in one field.
func (r *Repo) ByPhoneOrEmail(ctx context.Context, ident string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_number = $1 OR email = $1`, ident))
}

// NewUser carries the fields of an account to create. PIN and Password must
// already be hashed.
type NewUser struct {
	PhoneNumber string
	PIN         string
	Name        string
	Email       string
	Password    string
	Language    string
}

func (r *Repo) exists(ctx context.Context, phone, email string) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM users WHERE phone_number = $1 OR ($2 <> '' AND email = $2)
		)`, phone, email).Scan(&found)
	return found, err
}

// insertUser creates the user row plus its wallet inside tx. The wallet
// currency comes from the phone country prefix.
func insertUser(ctx context.Context, tx pgx.Tx, nu NewUser) (*User, error) {
	if nu.Language == "" {
		nu.Language = "fr"
	}
	u, err := scanUser(tx.QueryRow(ctx, `
		INSERT INTO users (phone_number, pin, name, email, password, language)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), $6)
		RETURNING `+userColumns,
		nu.PhoneNumber, nu.PIN, nu.Name, nu.Email, nu.Password, nu.Language))
	if err != nil {
		return nil, err
	}
	if _, err := ledger.CreateTx(ctx, tx, u.ID, currency.ForPhone(u.PhoneNumber)); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateClient registers a user with the client role, recording who
// onboarded them.
func (r *Repo) CreateClient(ctx context.Context, nu NewUser, registeredBy *int64) (*User, error) {
	if found, err := r.exists(ctx, nu.PhoneNumber, nu.Email); err != nil {
		return nil, err
	} else if found {
		return nil, ErrAlreadyExists
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u, err := insertUser(ctx, tx, nu)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO clients (owner_id, registered_by) VALUES ($1, $2)`,
		u.ID, registeredBy); err != nil {
		return nil, err
	}
	return u, tx.Commit(ctx)
}

// CreatePartner registers a self-service partner account. partnerCode must
// already be hashed.
func (r *Repo) CreatePartner(ctx context.Context, nu NewUser, partnerCode string) (*User, error) {
	if found, err := r.exists(ctx, nu.PhoneNumber, nu.Email); err != nil {
		return nil, err
	} else if found {
		return nil, ErrAlreadyExists
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u, err := insertUser(ctx, tx, nu)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO partners (owner_id, phone_number, email, partner_code)
		VALUES ($1, $2, NULLIF($3,''), $4)`,
		u.ID, nu.PhoneNumber, nu.Email, partnerCode); err != nil {
		return nil, err
	}
	return u, tx.Commit(ctx)
}

// CreateMerchant registers a merchant-owned user. merchantCode must already
// be hashed.
func (r *Repo) CreateMerchant(ctx context.Context, nu NewUser, businessName, merchantCode string, registeredBy *int64) (*User, error) {
	if found, err := r.exists(ctx, nu.PhoneNumber, nu.Email); err != nil {
		return nil, err
	} else if found {
		return nil, ErrAlreadyExists
	}
	var taken bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM merchants WHERE business_name = $1)`,
		businessName).Scan(&taken); err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrAlreadyExists
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u, err := insertUser(ctx, tx, nu)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO merchants (owner_id, business_name, phone_number, email, merchant_code, registered_by)
		VALUES ($1, $2, $3, NULLIF($4,''), $5, $6)`,
		u.ID, businessName, nu.PhoneNumber, nu.Email, merchantCode, registeredBy); err != nil {
		return nil, err
	}
	return u, tx.Commit(ctx)
}

// MerchantByPhone resolves the merchant identity withdrawals are routed to.
func (r *Repo) MerchantByPhone(ctx context.Context, phone string) (*Merchant, error) {
	var m Merchant
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, business_name, phone_number, COALESCE(email,''), merchant_code, registered_by
		FROM merchants WHERE phone_number = $1`, phone).
		Scan(&m.ID, &m.OwnerID, &m.BusinessName, &m.PhoneNumber, &m.Email, &m.MerchantCode, &m.RegisteredBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMerchantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Role reports the highest role attached to the user, for JWT claims.
func (r *Repo) Role(ctx context.Context, userID int64) (string, error) {
	var isAdmin, isPartner, isMerchant bool
	err := r.pool.QueryRow(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM admins WHERE owner_id = $1),
			EXISTS(SELECT 1 FROM partners WHERE owner_id = $1),
			EXISTS(SELECT 1 FROM merchants WHERE owner_id = $1)`,
		userID).Scan(&isAdmin, &isPartner, &isMerchant)
	if err != nil {
		return "", err
	}
	switch {
	case isAdmin:
		return RoleAdmin, nil
	case isPartner:
		return RolePartner, nil
	case isMerchant:
		return RoleMerchant, nil
	default:
		return RoleClient, nil
	}
}

// PhoneByID returns just the phone number, for notification sends.
func (r *Repo) PhoneByID(ctx context.Context, userID int64) (string, error) {
	var phone string
	err := r.pool.QueryRow(ctx,
		`SELECT phone_number FROM users WHERE id = $1`, userID).Scan(&phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return phone, err
}

func (r *Repo) UpdatePIN(ctx context.Context, userID int64, pinHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET pin = $1, updated_at = NOW() WHERE id = $2`, pinHash, userID)
	return err
}

func (r *Repo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET password = $1, updated_at = NOW() WHERE id = $2`, passwordHash, userID)
	return err
}

// ProfileUpdate applies only the fields the caller set.
type ProfileUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Language *string `json:"language"`
}

func (r *Repo) UpdateProfile(ctx context.Context, userID int64, up ProfileUpdate) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			name = COALESCE($1, name),
			email = COALESCE($2, email),
			language = COALESCE($3, language),
			updated_at = NOW()
		WHERE id = $4
		RETURNING `+userColumns,
		up.Name, up.Email, up.Language, userID))
}
