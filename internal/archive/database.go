package archive

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "payslips"

// DB defines the interface for database operations
type DB interface {
	// SavePayslip inserts or replaces a payslip
	SavePayslip(p *Payslip) error

	// GetPayslip retrieves a payslip by ID
	GetPayslip(id string) (*Payslip, error)

	// ListPayslips returns all payslips, newest pay period first
	ListPayslips() ([]*Payslip, error)

	// DeletePayslip removes a payslip from the database
	DeletePayslip(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SavePayslip saves a payslip to the database
func (b *BoltDB) SavePayslip(p *Payslip) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshaling payslip: %w", err)
		}
		return tx.Bucket([]byte(bucketName)).Put([]byte(p.ID), data)
	})
}

// GetPayslip retrieves a payslip by ID
func (b *BoltDB) GetPayslip(id string) (*Payslip, error) {
	var p *Payslip
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPayslips returns all payslips
func (b *BoltDB) ListPayslips() ([]*Payslip, error) {
	payslips := make([]*Payslip, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var p Payslip
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("unmarshaling payslip %s: %w", k, err)
			}
			payslips = append(payslips, &p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(payslips, func(i, j int) bool { return newer(payslips[i], payslips[j]) })
	return payslips, nil
}

// DeletePayslip removes a payslip from the database
func (b *BoltDB) DeletePayslip(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
