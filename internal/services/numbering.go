package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/paintms/internal/models"
	"gorm.io/gorm"
)

// numberLockKey guards invoice number assignment when a Locker is configured.
const numberLockKey = "lock:invoice-number"

var errNumberTaken = errors.New("invoice number already taken")

// Locker serialises a critical section across processes.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type noopLocker struct{}

func (noopLocker) Obtain(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

// nextInvoiceNumber returns the number for a new invoice created on day.
// The sequence is the running count of invoices plus one, raised above the
// highest sequence already used that day so numbers never repeat or go back.
func nextInvoiceNumber(tx *gorm.DB, day time.Time) (string, error) {
	var count int64
	if err := tx.Model(&models.Invoice{}).Count(&count).Error; err != nil {
		return "", err
	}
	maxSeq, err := maxDaySequence(tx, day)
	if err != nil {
		return "", err
	}
	seq := int(count) + 1
	if seq <= maxSeq {
		seq = maxSeq + 1
	}
	return models.FormatInvoiceNumber(day, seq), nil
}

// maxDaySequence returns the highest sequence used by invoices numbered on day.
func maxDaySequence(tx *gorm.DB, day time.Time) (int, error) {
	prefix := models.NumberDayPrefix(day)
	var numbers []string
	if err := tx.Model(&models.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Pluck("invoice_number", &numbers).Error; err != nil {
		return 0, err
	}
	maxSeq := 0
	for _, n := range numbers {
		seq, err := strconv.Atoi(strings.TrimPrefix(n, prefix))
		if err == nil && seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq, nil
}
