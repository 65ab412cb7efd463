package db

import (
	"context"
	"database/sql"
	"log"
	"time"

	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path and runs the schema
// migrations. The store assumes a single writing process; WAL plus a busy
// timeout covers concurrent request handlers inside that process.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	var journalMode string
	if err := sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		log.Printf("Warning: Failed to enable WAL mode: %v", err)
	} else {
		log.Printf("Database journal mode: %s", journalMode)
	}

	sqlDB.Exec("PRAGMA synchronous = NORMAL")
	sqlDB.Exec("PRAGMA temp_store = MEMORY")
	sqlDB.Exec("PRAGMA busy_timeout = 5000")
	sqlDB.Exec("PRAGMA foreign_keys = ON")

	database := &DB{db: sqlDB}
	if err := database.RunMigrations(); err != nil {
		return nil, err
	}

	return database, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.db.Close()
}

// wrapTransaction runs the given function within a transaction.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			log.Printf("error in transaction: %s", err)
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}

// Account (keypair) queries. The accounts table holds exactly one row:
// the local actor's name and PEM-encoded keypair.
const (
	sqlInsertAccount = `INSERT INTO accounts(name, pubkey, privkey, created_at) VALUES (?, ?, ?, ?)`
	sqlSelectAccount = `SELECT name, pubkey, privkey FROM accounts LIMIT 1`
	sqlCountAccounts = `SELECT count(*) FROM accounts`
)

// CreateAccount persists the singleton actor row with its keypair.
func (db *DB) CreateAccount(name string, pubkeyPem string, privkeyPem string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertAccount, name, pubkeyPem, privkeyPem, time.Now())
		return err
	})
}

// ReadAccount returns the singleton actor row, or sql.ErrNoRows if the
// keypair has not been generated yet.
func (db *DB) ReadAccount() (error, string, string, string) {
	var name, pubkey, privkey string
	row := db.db.QueryRow(sqlSelectAccount)
	err := row.Scan(&name, &pubkey, &privkey)
	if err != nil {
		return err, "", "", ""
	}
	return nil, name, pubkey, privkey
}

// HasAccount reports whether the keypair row exists.
func (db *DB) HasAccount() (error, bool) {
	var count int
	if err := db.db.QueryRow(sqlCountAccounts).Scan(&count); err != nil {
		return err, false
	}
	return nil, count > 0
}
