package database

import "context"

const getSetting = `
SELECT key, value, updated_at FROM settings WHERE key = $1
`

func (q *Queries) GetSetting(ctx context.Context, key string) (Setting, error) {
	var s Setting
	err := q.db.QueryRow(ctx, getSetting, key).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	return s, err
}

const upsertSetting = `
INSERT INTO settings (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
RETURNING key, value, updated_at
`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) (Setting, error) {
	var s Setting
	err := q.db.QueryRow(ctx, upsertSetting, key, value).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	return s, err
}
