package paydb

import (
	"fmt"

	"go.etcd.io/bbolt"
)

// migrateCommittedAt moves prepared payments, which were stored as plain
// values keyed by id, into a sub-bucket per payment so the commit time can be
// stored next to them. Payments of the first version were never committed.
func migrateCommittedAt(tx *bbolt.Tx) error {
	rootBucket := tx.Bucket(preparedBucketKey)
	if rootBucket == nil {
		return nil
	}

	// Collect the flat records first, the bucket can't be modified while
	// iterating over it.
	payments := make(map[string][]byte)
	err := rootBucket.ForEach(func(id, v []byte) error {
		if v == nil {
			return nil
		}

		payments[string(id)] = append([]byte(nil), v...)

		return nil
	})
	if err != nil {
		return err
	}

	log.Infof("Migrating %v prepared payments", len(payments))

	for id, data := range payments {
		if err := rootBucket.Delete([]byte(id)); err != nil {
			return err
		}

		paymentBucket, err := rootBucket.CreateBucket([]byte(id))
		if err != nil {
			return fmt.Errorf("payment %x: %w", id, err)
		}

		if err := paymentBucket.Put(paymentKey, data); err != nil {
			return err
		}
	}

	return nil
}
