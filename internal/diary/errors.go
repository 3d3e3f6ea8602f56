// ABOUTME: Error taxonomy for diary operations.
// ABOUTME: Transports map these sentinels to status codes and user-facing messages.
package diary

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")

	// ErrKeyReused means an idempotency key already names a different entry.
	ErrKeyReused = errors.New("idempotency key reused for a different entry")
)

// User-facing messages, in the diary's display language.
const (
	MsgRegisterFieldsRequired = "Nome e telefone são obrigatórios"
	MsgPhoneRequired          = "Telefone é obrigatório"
	MsgPhoneTaken             = "Usuário já existe com este telefone"
	MsgInvalidUserID          = "ID de usuário inválido"
	MsgUserNotFound           = "Usuário não encontrado"
	MsgEntryFieldsRequired    = "Dados obrigatórios não fornecidos"
	MsgInvalidBodyPart        = "Região do corpo inválida"
	MsgInvalidPainLevel       = "Nível de dor deve estar entre 0 e 10"
	MsgInvalidForm            = "Formulário de tratamento inválido"
	MsgForbidden              = "Acesso negado"
	MsgKeyReused              = "Chave de idempotência já usada para outro registro"
	MsgInternal               = "Erro interno do servidor"
)

// ValidationError names the offending field and the message to show.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
