package ledger

import "errors"

// Ошибки журнала. Любая из них откатывает объемлющую транзакцию целиком —
// частичных применений не бывает.
var (
	// ErrNotFound отметка или членство в группе не существует
	ErrNotFound = errors.New("ledger: record not found")

	// ErrMakeUpConflict нарушение связи отработки: у пропуска уже есть
	// отработка, либо отметка уже закрывает другой пропуск.
	// Не разрешается автоматически — конфликт устраняет вызывающий.
	ErrMakeUpConflict = errors.New("ledger: make-up link conflict")

	// ErrTxConflict конкурентное изменение обнаружено при коммите.
	// Транзакция повторяется один раз со свежим чтением, повторный
	// отказ отдаётся наружу.
	ErrTxConflict = errors.New("ledger: transaction conflict")

	// ErrInvariant нарушение инварианта данных (например, списания в
	// истории у пробного ученика). Указывает на порчу данных,
	// логируется громко и никогда не глотается.
	ErrInvariant = errors.New("ledger: invariant violation")
)
