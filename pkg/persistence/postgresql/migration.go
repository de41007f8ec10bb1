package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
		CREATE TABLE IF NOT EXISTS workflows (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			channels JSONB NOT NULL DEFAULT '[]',
			nodes JSONB NOT NULL DEFAULT '[]',
			edges JSONB NOT NULL DEFAULT '[]',
			rule_root JSONB,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMP WITH TIME ZONE
		);

		CREATE INDEX IF NOT EXISTS idx_workflows_tenant_status
			ON workflows (tenant_id, status) WHERE deleted_at IS NULL;

		CREATE TABLE IF NOT EXISTS tickets (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			contact_id UUID,
			assignee_id TEXT,
			channel_kind TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			status TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT '',
			fields JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMP WITH TIME ZONE
		);

		CREATE TABLE IF NOT EXISTS contacts (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			company_id UUID,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			fields JSONB NOT NULL DEFAULT '{}',
			deleted_at TIMESTAMP WITH TIME ZONE
		);

		CREATE TABLE IF NOT EXISTS companies (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL DEFAULT '',
			fields JSONB NOT NULL DEFAULT '{}',
			deleted_at TIMESTAMP WITH TIME ZONE
		);

		CREATE TABLE IF NOT EXISTS custom_field_values (
			custom_field_id TEXT NOT NULL,
			ticket_id UUID NOT NULL,
			value JSONB,
			PRIMARY KEY (custom_field_id, ticket_id)
		);

		CREATE TABLE IF NOT EXISTS custom_object_field_values (
			custom_object_id TEXT NOT NULL,
			custom_object_field_id TEXT NOT NULL,
			ticket_id UUID NOT NULL,
			value JSONB,
			PRIMARY KEY (custom_object_id, custom_object_field_id, ticket_id)
		);
		`,
		2: `
		CREATE TABLE IF NOT EXISTS tenant_settings (
			tenant_id TEXT PRIMARY KEY,
			ticket_ai_enabled BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS chatbots (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			audience_root JSONB,
			position INTEGER NOT NULL DEFAULT 0,
			enabled BOOLEAN NOT NULL DEFAULT TRUE
		);

		CREATE TABLE IF NOT EXISTS teams (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS team_routes (
			id UUID PRIMARY KEY,
			team_id UUID NOT NULL REFERENCES teams (id),
			channel_kind TEXT NOT NULL,
			channel_id TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_team_routes_channel
			ON team_routes (channel_kind, channel_id);

		CREATE TABLE IF NOT EXISTS team_associations (
			id UUID PRIMARY KEY,
			ticket_id UUID NOT NULL,
			team_id UUID NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_team_associations_ticket
			ON team_associations (ticket_id);
		`,
	}
}
