package authRepository

const (
	queryCreateUser = `
INSERT INTO users (id, username, password, created_at)
VALUES (:id, :username, :password, :created_at)`

	queryGetById = `
SELECT id, username, password, created_at
FROM users
    WHERE id = :id`

	queryGetByUsername = `
SELECT id, username, password, created_at
FROM users
    WHERE username = :username`
)
