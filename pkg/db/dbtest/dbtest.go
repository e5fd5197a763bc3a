// Package dbtest opens isolated in-memory sqlite databases carrying the
// application schema. The DDL is written by hand because the production
// column defaults are Postgres expressions sqlite cannot parse.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE customers (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  email TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE partners (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  email TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  company_name TEXT,
  verification_status TEXT NOT NULL DEFAULT 'pending',
  credit_balance_paise INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE agents (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  partner_id TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  employee_id TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE serviceable_pincodes (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  partner_id TEXT NOT NULL,
  pincode TEXT NOT NULL,
  city TEXT,
  state TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME
);`,
	`CREATE TABLE credit_plans (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  plan_name TEXT NOT NULL,
  credit_amount_paise INTEGER NOT NULL,
  price_paise INTEGER NOT NULL,
  bonus_percent INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  customer_id TEXT NOT NULL,
  partner_id TEXT,
  agent_id TEXT,
  phone_name TEXT NOT NULL,
  brand TEXT,
  model TEXT,
  ram_gb INTEGER,
  storage_gb INTEGER,
  variant TEXT,
  condition_answers TEXT,
  quoted_price_paise INTEGER NOT NULL,
  customer_name TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  customer_email TEXT,
  pickup_address_line TEXT NOT NULL,
  pickup_city TEXT NOT NULL,
  pickup_state TEXT NOT NULL,
  pickup_pincode TEXT NOT NULL,
  pickup_date DATETIME,
  pickup_time_slot TEXT,
  status TEXT NOT NULL DEFAULT 'lead_created',
  cancellation_reason TEXT,
  actual_condition TEXT,
  final_offer_paise INTEGER,
  customer_accepted_offer INTEGER,
  pickup_notes TEXT,
  payment_amount_paise INTEGER,
  payment_method TEXT,
  payment_reference TEXT,
  payment_notes TEXT,
  locked_at DATETIME,
  lock_expires_at DATETIME,
  purchased_at DATETIME,
  assigned_at DATETIME,
  accepted_at DATETIME,
  pickup_scheduled_at DATETIME,
  completed_at DATETIME,
  payment_processed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE INDEX idx_orders_status ON orders (status);`,
	`CREATE INDEX idx_orders_pickup_pincode ON orders (pickup_pincode);`,
	`CREATE TABLE lead_locks (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  order_id TEXT NOT NULL,
  partner_id TEXT NOT NULL,
  granted_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX ux_lead_locks_active ON lead_locks (order_id) WHERE is_active;`,
	`CREATE INDEX idx_lead_locks_expires_at ON lead_locks (expires_at);`,
	`CREATE TABLE credit_transactions (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  partner_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_paise INTEGER NOT NULL,
  balance_before_paise INTEGER NOT NULL,
  balance_after_paise INTEGER NOT NULL,
  reference_id TEXT,
  reference_type TEXT,
  actor_type TEXT NOT NULL,
  actor_id TEXT,
  notes TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE order_status_history (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  order_id TEXT NOT NULL,
  from_status TEXT,
  to_status TEXT NOT NULL,
  actor_type TEXT NOT NULL,
  actor_id TEXT,
  notes TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}

// Open returns an isolated in-memory database with the full schema applied.
// Each call uses a fresh shared-cache name so parallel tests never collide.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:db_%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, ddl := range schema {
		if err := conn.Exec(ddl).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}
