package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate は一意制約違反を表す。
	ErrDuplicate = errors.New("repository: unique constraint violation")

	// ErrForeignKey は外部キー制約違反を表す。
	ErrForeignKey = errors.New("repository: foreign key violation")
)

// PostgreSQLのSQLSTATE
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// classifyError はドライバのエラーを制約違反の番兵エラーに変換する。
// 制約違反でなければ元のエラーをそのまま返す。
func classifyError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		return fmt.Errorf("%w (%s)", ErrDuplicate, pqErr.Constraint)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w (%s)", ErrForeignKey, pqErr.Constraint)
	default:
		return err
	}
}
