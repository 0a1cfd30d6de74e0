package messages

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"visapath/internal/platform/crypto"
)

// Store persists message bodies encrypted at rest when a data key is
// configured.
type Store struct {
	DB     *pgxpool.Pool
	cipher *crypto.Cipher
}

func NewStore(db *pgxpool.Pool, cipher *crypto.Cipher) *Store {
	return &Store{DB: db, cipher: cipher}
}
