package repository

import (
	"database/sql"
	"go-auth-api/logger"
	"go-auth-api/model"
)

// IUserRepository defines the contract for user database operations.
type IUserRepository interface {
	CreateUser(user *model.User) error
	GetUserByEmail(email string) (*model.User, error)
	GetUserByID(id int) (*model.User, error)
	GetUserByRefreshToken(token string) (*model.User, error)
	UpdateRefreshToken(userID int, token string) error
	UpdatePassword(userID int, passwordHash string) error
}

// UserRepository implements IUserRepository.
type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) CreateUser(user *model.User) error {
	query := `INSERT INTO users (name, email, avatar, password) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	return r.DB.QueryRow(query, user.Name, user.Email, user.Avatar, user.Password).Scan(&user.ID, &user.CreatedAt)
}

func (r *UserRepository) GetUserByEmail(email string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT id, name, email, avatar, password, refresh_token, created_at FROM users WHERE email=$1`
	err := r.DB.QueryRow(query, email).Scan(&user.ID, &user.Name, &user.Email, &user.Avatar, &user.Password, &user.RefreshToken, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetUserByID(id int) (*model.User, error) {
	user := &model.User{}
	query := `SELECT id, name, email, avatar, password, refresh_token, created_at FROM users WHERE id=$1`
	err := r.DB.QueryRow(query, id).Scan(&user.ID, &user.Name, &user.Email, &user.Avatar, &user.Password, &user.RefreshToken, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByRefreshToken resolves the user holding the presented refresh token.
// Each user row tracks at most one live token, so an overwritten token simply
// stops matching here.
func (r *UserRepository) GetUserByRefreshToken(token string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT id, name, email, avatar, password, refresh_token, created_at FROM users WHERE refresh_token=$1 AND refresh_token <> ''`
	err := r.DB.QueryRow(query, token).Scan(&user.ID, &user.Name, &user.Email, &user.Avatar, &user.Password, &user.RefreshToken, &user.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).Error("Failed to execute get user by refresh token query")
		}
		return nil, err // Return sql.ErrNoRows if not found
	}
	return user, nil
}

// UpdateRefreshToken overwrites the stored refresh token for a user,
// invalidating whatever value was stored before.
func (r *UserRepository) UpdateRefreshToken(userID int, token string) error {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to rotate the stored refresh token")

	query := `UPDATE users SET refresh_token = $1 WHERE id = $2`
	if _, err := r.DB.Exec(query, token, userID); err != nil {
		log.WithError(err).Error("Failed to execute update refresh token query")
		return err
	}
	return nil
}

func (r *UserRepository) UpdatePassword(userID int, passwordHash string) error {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to update the password hash")

	query := `UPDATE users SET password = $1 WHERE id = $2`
	if _, err := r.DB.Exec(query, passwordHash, userID); err != nil {
		log.WithError(err).Error("Failed to execute update password query")
		return err
	}
	return nil
}
