package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"jalsaathi/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the database named by dbType in cfg.Databases.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		// every pooled connection to :memory: would see its own empty database
		if strings.Contains(dbCfg.DSN, ":memory:") {
			db.SetMaxOpenConns(1)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn := dbCfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
				dbCfg.Username,
				dbCfg.Password,
				dbCfg.Host,
				dbCfg.Port,
				dbCfg.DBName,
				dbCfg.Params,
			)
		}
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = sqliteSchema
	case "mysql":
		stmts = mysqlSchema
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_tokens (
		token TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_tokens_user ON user_tokens(user_id)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		locale TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		sender TEXT NOT NULL,
		text TEXT NOT NULL,
		template TEXT NOT NULL DEFAULT '',
		intent TEXT NOT NULL DEFAULT '',
		actions TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		UNIQUE(conversation_id, seq),
		FOREIGN KEY(conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS flags (
		scope TEXT NOT NULL,
		name TEXT NOT NULL,
		value INTEGER NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY(scope, name)
	)`,
	`CREATE TABLE IF NOT EXISTS water_issues (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		issue_type TEXT NOT NULL,
		location TEXT NOT NULL,
		description TEXT NOT NULL,
		latitude REAL,
		longitude REAL,
		image_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		comments TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_water_issues_user ON water_issues(user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS issue_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		file_name TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		url TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_issue_images_user ON issue_images(user_id)`,
	`CREATE TABLE IF NOT EXISTS chat_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		query TEXT NOT NULL,
		response TEXT NOT NULL,
		locale TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_history_user ON chat_history(user_id, created_at DESC)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		username VARCHAR(255) NOT NULL UNIQUE,
		full_name VARCHAR(255) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS user_tokens (
		token VARCHAR(255) NOT NULL PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		INDEX idx_user_tokens_user (user_id),
		CONSTRAINT fk_user_tokens_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id CHAR(36) NOT NULL PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		locale VARCHAR(8) NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_conversations_user (user_id, updated_at),
		CONSTRAINT fk_conversations_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS turns (
		id CHAR(36) NOT NULL PRIMARY KEY,
		conversation_id CHAR(36) NOT NULL,
		seq INT NOT NULL,
		sender VARCHAR(16) NOT NULL,
		text TEXT NOT NULL,
		template VARCHAR(64) NOT NULL DEFAULT '',
		intent VARCHAR(64) NOT NULL DEFAULT '',
		actions TEXT NOT NULL,
		created_at DATETIME(3) NOT NULL,
		UNIQUE KEY uniq_turns_seq (conversation_id, seq),
		CONSTRAINT fk_turns_conversation FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS flags (
		scope VARCHAR(128) NOT NULL,
		name VARCHAR(128) NOT NULL,
		value TINYINT(1) NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (scope, name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS water_issues (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		issue_type VARCHAR(64) NOT NULL,
		location VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		latitude DOUBLE NULL,
		longitude DOUBLE NULL,
		image_url TEXT NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		comments TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (id),
		INDEX idx_water_issues_user (user_id, created_at),
		CONSTRAINT fk_water_issues_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS issue_images (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		file_name VARCHAR(255) NOT NULL,
		stored_path TEXT NOT NULL,
		mime_type VARCHAR(255) NOT NULL,
		size BIGINT NOT NULL,
		url TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (id),
		INDEX idx_issue_images_user (user_id),
		CONSTRAINT fk_issue_images_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS chat_history (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		query TEXT NOT NULL,
		response MEDIUMTEXT NOT NULL,
		locale VARCHAR(8) NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (id),
		INDEX idx_chat_history_user (user_id, created_at),
		CONSTRAINT fk_chat_history_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
