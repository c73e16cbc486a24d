package model

import "time"

// Redis operations an outbox row can carry.
const (
	OutboxOpRPush = "rpush"
	OutboxOpHSet  = "hset"
)

// OutboxMessage is one pending queue push, written in the same database
// transaction as the entity change it announces. The relay drains rows in
// id order and deletes them after the redis call succeeds, so delivery is
// at-least-once and never lost to a redis outage.
type OutboxMessage struct {
	ID        uint   `gorm:"primaryKey"`
	Op        string `gorm:"size:10;not null;default:'rpush'"`
	Key       string `gorm:"size:100;not null"`
	Field     string `gorm:"size:100;default:''"` // hset only
	Payload   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}
