package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StorageType определяет, где физически лежит файл ресурса.
type StorageType string

const (
	StorageTypeFile StorageType = "FILE"
	StorageTypeS3   StorageType = "S3"
)

// ParseStorageType разбирает значение STORAGE_TYPE. Неизвестные значения считаются FILE.
func ParseStorageType(s string) StorageType {
	switch StorageType(strings.ToUpper(strings.TrimSpace(s))) {
	case StorageTypeS3:
		return StorageTypeS3
	default:
		return StorageTypeFile
	}
}

// Channel - логический канал ресурса.
type Channel string

const (
	ChannelInput  Channel = "INPUT"
	ChannelOutput Channel = "OUTPUT"
)

// Resource описывает сохраненный файл: где он лежит и как хранится.
// Создается один раз на каждое сгенерированное изображение после успешной записи.
type Resource struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Path        string      `json:"path" db:"path"`
	StorageType StorageType `json:"storage_type" db:"storage_type"`
	Channel     Channel     `json:"channel" db:"channel"`
	Size        int64       `json:"size" db:"size"`
	Type        string      `json:"type" db:"type"` // MIME
	AgentID     *string     `json:"agent_id,omitempty" db:"agent_id"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// IsRemote сообщает, нужно ли выгружать файл во внешнее хранилище.
func (r *Resource) IsRemote() bool {
	return r != nil && r.StorageType == StorageTypeS3
}
