package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EmailConfigRepository stores the mail panel configuration edited by DSI administrators.
type EmailConfigRepository interface {
	GetSettings(ctx context.Context) (*domain.EmailSettings, error)
	SaveSettings(ctx context.Context, settings *domain.EmailSettings) error

	ListTemplates(ctx context.Context) ([]domain.EmailTemplate, error)
	GetTemplate(ctx context.Context, id string) (*domain.EmailTemplate, error)
	CreateTemplate(ctx context.Context, tpl *domain.EmailTemplate) error
	UpdateTemplate(ctx context.Context, tpl *domain.EmailTemplate) error
	DeleteTemplate(ctx context.Context, id string) error

	ListRules(ctx context.Context) ([]domain.NotificationRule, error)
	GetRule(ctx context.Context, event string) (*domain.NotificationRule, error)
	SaveRule(ctx context.Context, rule *domain.NotificationRule) error

	GetFrequency(ctx context.Context) (*domain.FrequencyRule, error)
	SaveFrequency(ctx context.Context, rule *domain.FrequencyRule) error
}

type emailConfigRepository struct {
	db DB
}

// NewEmailConfigRepository builds repository.
func NewEmailConfigRepository(db DB) EmailConfigRepository {
	return &emailConfigRepository{db: db}
}

// Settings and frequency are singleton rows keyed by id=1.
func (r *emailConfigRepository) GetSettings(ctx context.Context) (*domain.EmailSettings, error) {
	const query = `
        SELECT provider, sender_email, display_name, smtp_host, smtp_port, auth_type,
               smtp_username, smtp_password, use_tls, verify_ssl, updated_at
        FROM email_settings WHERE id=1`
	var s domain.EmailSettings
	if err := r.db.QueryRow(ctx, query).Scan(
		&s.Provider,
		&s.SenderEmail,
		&s.DisplayName,
		&s.SMTPHost,
		&s.SMTPPort,
		&s.AuthType,
		&s.SMTPUsername,
		&s.SMTPPassword,
		&s.UseTLS,
		&s.VerifySSL,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *emailConfigRepository) SaveSettings(ctx context.Context, s *domain.EmailSettings) error {
	const query = `
        INSERT INTO email_settings (id, provider, sender_email, display_name, smtp_host, smtp_port, auth_type,
            smtp_username, smtp_password, use_tls, verify_ssl, updated_at)
        VALUES (1,$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
        ON CONFLICT (id) DO UPDATE SET provider=EXCLUDED.provider, sender_email=EXCLUDED.sender_email,
            display_name=EXCLUDED.display_name, smtp_host=EXCLUDED.smtp_host, smtp_port=EXCLUDED.smtp_port,
            auth_type=EXCLUDED.auth_type, smtp_username=EXCLUDED.smtp_username,
            smtp_password=EXCLUDED.smtp_password, use_tls=EXCLUDED.use_tls, verify_ssl=EXCLUDED.verify_ssl,
            updated_at=NOW()
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		s.Provider,
		s.SenderEmail,
		s.DisplayName,
		s.SMTPHost,
		s.SMTPPort,
		s.AuthType,
		s.SMTPUsername,
		s.SMTPPassword,
		s.UseTLS,
		s.VerifySSL,
	).Scan(&s.UpdatedAt)
}

const templateColumns = `id, name, event, subject, body, recipients, active, updated_at`

func (r *emailConfigRepository) ListTemplates(ctx context.Context) ([]domain.EmailTemplate, error) {
	rows, err := r.db.Query(ctx, `SELECT `+templateColumns+` FROM email_templates ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EmailTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tpl)
	}
	return result, rows.Err()
}

func (r *emailConfigRepository) GetTemplate(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	return scanTemplate(r.db.QueryRow(ctx, `SELECT `+templateColumns+` FROM email_templates WHERE id=$1`, id))
}

func (r *emailConfigRepository) CreateTemplate(ctx context.Context, tpl *domain.EmailTemplate) error {
	const query = `
        INSERT INTO email_templates (name, event, subject, body, recipients, active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, updated_at`
	return r.db.QueryRow(ctx, query,
		tpl.Name,
		tpl.Event,
		tpl.Subject,
		tpl.Body,
		tpl.Recipients,
		tpl.Active,
	).Scan(&tpl.ID, &tpl.UpdatedAt)
}

func (r *emailConfigRepository) UpdateTemplate(ctx context.Context, tpl *domain.EmailTemplate) error {
	const query = `
        UPDATE email_templates SET name=$1, event=$2, subject=$3, body=$4, recipients=$5, active=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		tpl.Name,
		tpl.Event,
		tpl.Subject,
		tpl.Body,
		tpl.Recipients,
		tpl.Active,
		tpl.ID,
	).Scan(&tpl.UpdatedAt)
}

func (r *emailConfigRepository) DeleteTemplate(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM email_templates WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTemplate(row pgx.Row) (*domain.EmailTemplate, error) {
	var tpl domain.EmailTemplate
	if err := row.Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Event,
		&tpl.Subject,
		&tpl.Body,
		&tpl.Recipients,
		&tpl.Active,
		&tpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *emailConfigRepository) ListRules(ctx context.Context) ([]domain.NotificationRule, error) {
	rows, err := r.db.Query(ctx, `SELECT event, active, recipients FROM notification_rules ORDER BY event ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.NotificationRule
	for rows.Next() {
		var rule domain.NotificationRule
		if err := rows.Scan(&rule.Event, &rule.Active, &rule.Recipients); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func (r *emailConfigRepository) GetRule(ctx context.Context, event string) (*domain.NotificationRule, error) {
	var rule domain.NotificationRule
	if err := r.db.QueryRow(ctx,
		`SELECT event, active, recipients FROM notification_rules WHERE event=$1`, event,
	).Scan(&rule.Event, &rule.Active, &rule.Recipients); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *emailConfigRepository) SaveRule(ctx context.Context, rule *domain.NotificationRule) error {
	const query = `
        INSERT INTO notification_rules (event, active, recipients)
        VALUES ($1,$2,$3)
        ON CONFLICT (event) DO UPDATE SET active=EXCLUDED.active, recipients=EXCLUDED.recipients`
	_, err := r.db.Exec(ctx, query, rule.Event, rule.Active, rule.Recipients)
	return err
}

func (r *emailConfigRepository) GetFrequency(ctx context.Context) (*domain.FrequencyRule, error) {
	const query = `
        SELECT mode, group_interval_minutes, daily_time, silence_from, silence_to, apply_weekend
        FROM notification_frequency WHERE id=1`
	var rule domain.FrequencyRule
	if err := r.db.QueryRow(ctx, query).Scan(
		&rule.Mode,
		&rule.GroupIntervalMinutes,
		&rule.DailyTime,
		&rule.SilenceFrom,
		&rule.SilenceTo,
		&rule.ApplyWeekend,
	); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *emailConfigRepository) SaveFrequency(ctx context.Context, rule *domain.FrequencyRule) error {
	const query = `
        INSERT INTO notification_frequency (id, mode, group_interval_minutes, daily_time, silence_from, silence_to, apply_weekend)
        VALUES (1,$1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO UPDATE SET mode=EXCLUDED.mode, group_interval_minutes=EXCLUDED.group_interval_minutes,
            daily_time=EXCLUDED.daily_time, silence_from=EXCLUDED.silence_from, silence_to=EXCLUDED.silence_to,
            apply_weekend=EXCLUDED.apply_weekend`
	_, err := r.db.Exec(ctx, query,
		rule.Mode,
		rule.GroupIntervalMinutes,
		rule.DailyTime,
		rule.SilenceFrom,
		rule.SilenceTo,
		rule.ApplyWeekend,
	)
	return err
}
