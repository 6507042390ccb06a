package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Las operaciones los envuelven con fmt.Errorf("%w: ...") y los llamadores comparan con errors.Is.
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrForbidden           = errors.New("acceso denegado")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrOverAllocation      = errors.New("cantidad solicitada supera la cantidad retornable")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia, reintente")
	ErrInvariantViolation  = errors.New("violación de invariante interno")
)
