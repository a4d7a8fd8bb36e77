package paydb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lightninglabs/payengine"
	"github.com/lightninglabs/payengine/swap"
	"github.com/lightningnetwork/lnd/clock"
	"go.etcd.io/bbolt"
)

var (
	// dbFileName is the default file name of the payment database.
	dbFileName = "payments.db"

	// preparedBucketKey is a bucket that contains all prepared payments,
	// committed or not. This bucket is keyed by the payment id, and leads
	// to a nested sub-bucket that houses information for that payment.
	//
	// maps: paymentID -> paymentBucket
	preparedBucketKey = []byte("prepared-payments")

	// paymentKey stores the serialized prepared payment.
	//
	// path: preparedBucket -> paymentBucket[id] -> paymentKey
	paymentKey = []byte("payment")

	// committedAtKey stores the unix nano time the payment was committed
	// at. It is absent for payments that were only prepared.
	//
	// path: preparedBucket -> paymentBucket[id] -> committedAtKey
	committedAtKey = []byte("committed-at")

	// swapsBucketKey is a bucket that contains the swaps that passed
	// validation, keyed by the server swap id.
	//
	// maps: swapID -> time || serialized swap
	swapsBucketKey = []byte("validated-swaps")

	byteOrder = binary.BigEndian
)

var (
	// ErrPaymentNotFound is returned when a prepared payment is unknown.
	ErrPaymentNotFound = errors.New("prepared payment not found")

	// ErrAlreadyCommitted is returned when committing a payment twice.
	ErrAlreadyCommitted = errors.New("payment already committed")

	// ErrRateWindowChanged is returned when committing a payment whose
	// exchange rates are no longer the current ones. The payment must be
	// analyzed again.
	ErrRateWindowChanged = errors.New("exchange rate window changed " +
		"since the payment was prepared")

	// ErrSwapNotFound is returned when a swap was never validated.
	ErrSwapNotFound = errors.New("validated swap not found")
)

// StoredPayment is a prepared payment and its commit state.
type StoredPayment struct {
	*payengine.PreparedPayment

	// CommittedAt is zero for payments that are only prepared.
	CommittedAt time.Time
}

// Committed returns whether the payment was committed.
func (s *StoredPayment) Committed() bool {
	return !s.CommittedAt.IsZero()
}

// ValidatedSwap is a swap that passed validation.
type ValidatedSwap struct {
	*swap.SubmarineSwap

	ValidatedAt time.Time
}

// fileExists returns true if the file exists, and false otherwise.
func fileExists(path string) bool {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}

	return true
}

// BoltStore stores prepared payments and validated swaps in boltdb.
type BoltStore struct {
	db    *bbolt.DB
	clock clock.Clock
}

// NewBoltStore opens the payment store in dbPath, creating it if needed.
func NewBoltStore(dbPath string, clock clock.Clock) (*BoltStore, error) {
	// If the target path for the store doesn't exist, then we'll create
	// it now before we proceed.
	if !fileExists(dbPath) {
		if err := os.MkdirAll(dbPath, 0700); err != nil {
			return nil, err
		}
	}

	path := filepath.Join(dbPath, dbFileName)
	bdb, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: time.Second,
	})
	if err != nil {
		return nil, err
	}

	// We'll create all the buckets we need if this is the first time we're
	// starting up. If they already exist, then these calls will be noops.
	err = bdb.Update(func(tx *bbolt.Tx) error {
		// Check if the meta bucket exists. If it exists, we consider
		// the database as initialized and assume the meta bucket
		// contains the db version.
		metaBucket := tx.Bucket(metaBucketKey)
		if metaBucket == nil {
			log.Infof("Initializing new database with version %v",
				latestDBVersion)

			err := setDBVersion(tx, latestDBVersion)
			if err != nil {
				return err
			}
		}

		_, err := tx.CreateBucketIfNotExists(preparedBucketKey)
		if err != nil {
			return err
		}

		_, err = tx.CreateBucketIfNotExists(swapsBucketKey)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, err
	}

	// Finally, before we start, we'll sync the DB versions to pick up any
	// possible DB migrations.
	if err := syncVersions(bdb); err != nil {
		bdb.Close()
		return nil, err
	}

	return &BoltStore{
		db:    bdb,
		clock: clock,
	}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// PutPrepared stores a prepared payment.
func (s *BoltStore) PutPrepared(payment *payengine.PreparedPayment) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		rootBucket := tx.Bucket(preparedBucketKey)
		if rootBucket == nil {
			return errors.New("bucket does not exist")
		}

		paymentBucket, err := rootBucket.CreateBucket(payment.ID[:])
		if err != nil {
			return fmt.Errorf("payment %v: %w", payment.ID, err)
		}

		return paymentBucket.Put(paymentKey, data)
	})
}

// FetchPrepared returns a stored payment by id.
func (s *BoltStore) FetchPrepared(id uuid.UUID) (*StoredPayment, error) {
	var payment *StoredPayment

	err := s.db.View(func(tx *bbolt.Tx) error {
		rootBucket := tx.Bucket(preparedBucketKey)
		if rootBucket == nil {
			return errors.New("bucket does not exist")
		}

		paymentBucket := rootBucket.Bucket(id[:])
		if paymentBucket == nil {
			return ErrPaymentNotFound
		}

		var err error
		payment, err = deserializePayment(paymentBucket)
		return err
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// ListPrepared returns all stored payments, ordered by id.
func (s *BoltStore) ListPrepared() ([]*StoredPayment, error) {
	var payments []*StoredPayment

	err := s.db.View(func(tx *bbolt.Tx) error {
		rootBucket := tx.Bucket(preparedBucketKey)
		if rootBucket == nil {
			return errors.New("bucket does not exist")
		}

		return rootBucket.ForEach(func(id, v []byte) error {
			// Only go into things that we know are sub-bucket
			// keys.
			if v != nil {
				return nil
			}

			paymentBucket := rootBucket.Bucket(id)
			if paymentBucket == nil {
				return fmt.Errorf("payment bucket %x not found",
					id)
			}

			payment, err := deserializePayment(paymentBucket)
			if err != nil {
				return err
			}
			payments = append(payments, payment)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return payments, nil
}

// CommitPrepared marks a prepared payment as committed. The payment is only
// committed if it was analyzed with the current exchange rate window.
func (s *BoltStore) CommitPrepared(id uuid.UUID,
	currentRateWindowID int64) (*StoredPayment, error) {

	var payment *StoredPayment

	err := s.db.Update(func(tx *bbolt.Tx) error {
		rootBucket := tx.Bucket(preparedBucketKey)
		if rootBucket == nil {
			return errors.New("bucket does not exist")
		}

		paymentBucket := rootBucket.Bucket(id[:])
		if paymentBucket == nil {
			return ErrPaymentNotFound
		}

		var err error
		payment, err = deserializePayment(paymentBucket)
		if err != nil {
			return err
		}

		if payment.Committed() {
			return ErrAlreadyCommitted
		}

		if payment.RateWindowID != currentRateWindowID {
			return fmt.Errorf("%w: prepared with %v, current %v",
				ErrRateWindowChanged, payment.RateWindowID,
				currentRateWindowID)
		}

		payment.CommittedAt = s.clock.Now()

		scratch := make([]byte, 8)
		byteOrder.PutUint64(
			scratch, uint64(payment.CommittedAt.UnixNano()),
		)

		return paymentBucket.Put(committedAtKey, scratch)
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Committed payment %v of %v", id, payment.Total)

	return payment, nil
}

func deserializePayment(paymentBucket *bbolt.Bucket) (*StoredPayment,
	error) {

	data := paymentBucket.Get(paymentKey)
	if data == nil {
		return nil, errors.New("payment data not found")
	}

	prepared := &payengine.PreparedPayment{}
	if err := json.Unmarshal(data, prepared); err != nil {
		return nil, err
	}

	payment := &StoredPayment{
		PreparedPayment: prepared,
	}

	committedAt := paymentBucket.Get(committedAtKey)
	if committedAt != nil {
		payment.CommittedAt = time.Unix(
			0, int64(byteOrder.Uint64(committedAt)),
		)
	}

	return payment, nil
}

// PutValidatedSwap records a swap that passed validation.
func (s *BoltStore) PutValidatedSwap(sw *swap.SubmarineSwap) error {
	data, err := json.Marshal(sw)
	if err != nil {
		return err
	}

	// The validation time prefixes the serialized swap.
	value := make([]byte, 8, 8+len(data))
	byteOrder.PutUint64(value, uint64(s.clock.Now().UnixNano()))
	value = append(value, data...)

	err = s.db.Update(func(tx *bbolt.Tx) error {
		swapsBucket := tx.Bucket(swapsBucketKey)
		if swapsBucket == nil {
			return errors.New("bucket does not exist")
		}

		return swapsBucket.Put([]byte(sw.ID), value)
	})
	if err != nil {
		return err
	}

	swapLog := &swap.PrefixLog{Logger: log, SwapID: sw.ID}
	swapLog.Debugf("Stored validated swap")

	return nil
}

// FetchValidatedSwap returns a validated swap by id.
func (s *BoltStore) FetchValidatedSwap(id string) (*ValidatedSwap, error) {
	var validated *ValidatedSwap

	err := s.db.View(func(tx *bbolt.Tx) error {
		swapsBucket := tx.Bucket(swapsBucketKey)
		if swapsBucket == nil {
			return errors.New("bucket does not exist")
		}

		value := swapsBucket.Get([]byte(id))
		if value == nil {
			return ErrSwapNotFound
		}
		if len(value) < 8 {
			return fmt.Errorf("swap %v: invalid record", id)
		}

		sw := &swap.SubmarineSwap{}
		if err := json.Unmarshal(value[8:], sw); err != nil {
			return err
		}

		validated = &ValidatedSwap{
			SubmarineSwap: sw,
			ValidatedAt: time.Unix(
				0, int64(byteOrder.Uint64(value[:8])),
			),
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return validated, nil
}
