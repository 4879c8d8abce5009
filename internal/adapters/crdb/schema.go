package crdb

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	order_number STRING NOT NULL UNIQUE,
	user_id STRING NOT NULL,
	event_id STRING NOT NULL,
	item_type STRING NOT NULL CHECK (item_type IN ('event', 'meetup')),
	total_amount NUMERIC NOT NULL,
	status STRING NOT NULL CHECK (status IN ('pending', 'confirmed')),
	payment_status STRING NOT NULL CHECK (payment_status IN ('paid', 'unpaid')),
	selected_seats JSONB NOT NULL,
	seat_count INT NOT NULL,
	first_name STRING NOT NULL,
	last_name STRING NOT NULL,
	email STRING NOT NULL,
	phone STRING NOT NULL,
	gender STRING NOT NULL,
	birth_date STRING NOT NULL DEFAULT '',
	country STRING NOT NULL,
	promo_code STRING,
	payment_method STRING,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	INDEX bookings_event_idx (event_id),
	INDEX bookings_user_idx (user_id)
);
CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_type STRING NOT NULL,
	aggregate_id STRING NOT NULL,
	event_type STRING NOT NULL,
	payload_json JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ,
	status STRING NOT NULL CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
	dedupe_key STRING NOT NULL UNIQUE
);
`

// Migrate creates the tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}
