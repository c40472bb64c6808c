package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Agent represents a human support agent who can claim and resolve
// conversations.
type Agent struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AgentID  string             `bson:"agent_id" json:"agent_id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`

	// Authentication
	PasswordHash string `bson:"password_hash" json:"-"`

	// Status
	IsActive  bool      `bson:"is_active" json:"is_active"`
	LastLogin time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type Session struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID    string             `bson:"session_id" json:"session_id"`
	AgentID      string             `bson:"agent_id" json:"agent_id"`
	AgentName    string             `bson:"agent_name" json:"agent_name"`
	Email        string             `bson:"email" json:"email"`
	IPAddress    string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent    string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	LastAccessed time.Time          `bson:"last_accessed" json:"last_accessed"`
	ExpiresAt    time.Time          `bson:"expires_at" json:"expires_at"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
}
