package database

import (
	"context"
	"fmt"
)

// Schema creates every table the service uses. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    username VARCHAR(30) NOT NULL UNIQUE,
    name VARCHAR(100),
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    phone VARCHAR(15),
    is_newsletter_subscribed BOOLEAN NOT NULL DEFAULT FALSE,
    language VARCHAR(10) NOT NULL DEFAULT 'en',
    notifications BOOLEAN NOT NULL DEFAULT TRUE,
    roles TEXT[] NOT NULL DEFAULT '{traveller}',
    last_login_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token_hash VARCHAR(64) NOT NULL UNIQUE,
    device_type VARCHAR(20),
    ip_address VARCHAR(45),
    user_agent TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL,
    last_used_at TIMESTAMPTZ,
    revoked BOOLEAN NOT NULL DEFAULT FALSE,
    revoked_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens (user_id);

CREATE TABLE IF NOT EXISTS audit_logs (
    id UUID PRIMARY KEY,
    user_id UUID,
    action VARCHAR(40) NOT NULL,
    entity_type VARCHAR(20),
    ip_address VARCHAR(45),
    user_agent TEXT,
    details JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_user ON audit_logs (user_id, created_at);

CREATE TABLE IF NOT EXISTS payments (
    id UUID PRIMARY KEY,
    razorpay_order_id VARCHAR(64) NOT NULL UNIQUE,
    razorpay_payment_id VARCHAR(64),
    razorpay_signature VARCHAR(128),
    amount NUMERIC(12, 2) NOT NULL CHECK (amount > 0),
    amount_minor BIGINT NOT NULL CHECK (amount_minor > 0),
    currency VARCHAR(3) NOT NULL DEFAULT 'INR',
    receipt VARCHAR(64) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'created'
        CHECK (status IN ('created', 'authorized', 'captured', 'failed', 'refunded')),
    booking_type VARCHAR(16) NOT NULL CHECK (booking_type IN ('homestay', 'bus', 'package')),
    booking_id UUID,
    booking_reference VARCHAR(32),
    customer_details JSONB NOT NULL,
    booking_details JSONB,
    user_id UUID REFERENCES users(id),
    payment_method VARCHAR(32),
    failure_reason TEXT,
    refund_id VARCHAR(64),
    refund_amount NUMERIC(12, 2),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    captured_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_payments_status_created ON payments (status, created_at);

CREATE TABLE IF NOT EXISTS bookings (
    id UUID PRIMARY KEY,
    reference_number VARCHAR(32) NOT NULL UNIQUE,
    booking_type VARCHAR(16) NOT NULL,
    user_id UUID REFERENCES users(id),
    homestay_id VARCHAR(64),
    package_id VARCHAR(64),
    details JSONB NOT NULL DEFAULT '{}',
    pricing JSONB NOT NULL DEFAULT '{}',
    special_requests TEXT,
    customer JSONB NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'confirmed',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bus_bookings (
    id UUID PRIMARY KEY,
    pnr VARCHAR(32) NOT NULL UNIQUE,
    user_id UUID REFERENCES users(id),
    journey JSONB NOT NULL DEFAULT '{}',
    bus_details JSONB NOT NULL DEFAULT '{}',
    passengers JSONB NOT NULL DEFAULT '{}',
    pricing JSONB NOT NULL DEFAULT '{}',
    customer JSONB NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'confirmed',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS payment_audits (
    id UUID PRIMARY KEY,
    payment_id UUID,
    razorpay_order_id VARCHAR(64),
    razorpay_payment_id VARCHAR(64),
    event_type VARCHAR(40) NOT NULL,
    event_source VARCHAR(20) NOT NULL,
    expected_amount NUMERIC(12, 2),
    received_amount NUMERIC(12, 2),
    currency VARCHAR(3),
    amounts_match BOOLEAN,
    payment_status VARCHAR(16),
    gateway_event VARCHAR(40),
    request_payload JSONB,
    raw_body TEXT,
    error_message TEXT,
    error_code VARCHAR(40),
    processing_time_ms INTEGER,
    is_duplicate BOOLEAN NOT NULL DEFAULT FALSE,
    idempotency_key VARCHAR(128),
    ip_address VARCHAR(45),
    user_agent TEXT,
    device_info JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    processed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_payment_audits_order ON payment_audits (razorpay_order_id, event_type);
`

// EnsureSchema applies Schema
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
