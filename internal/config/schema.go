package config

// ExplorerConfig is the top-level YAML structure.
type ExplorerConfig struct {
	Version      string           `yaml:"version"`
	Log          LogConf          `yaml:"log"`
	Catalogue    RemoteConf       `yaml:"catalogue"`
	SDE          RemoteConf       `yaml:"sde"`
	QueryBuilder QueryBuilderConf `yaml:"query_builder"`
	Submission   SubmissionConf   `yaml:"submission"`
}

// LogConf selects the slog handler.
type LogConf struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// RemoteConf addresses one REST collaborator.
type RemoteConf struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ProfileRef names a profile provider by namespace and name.
type ProfileRef struct {
	Namespace string `yaml:"namespace"`
	Name      string `yaml:"name"`
}

// ExporterRef names a catalogue exporter plugin.
type ExporterRef struct {
	Namespace string `yaml:"namespace"`
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
}

// QueryBuilderConf holds the reloadable query-builder settings.
type QueryBuilderConf struct {
	PrimitiveTypeProfile      ProfileRef          `yaml:"primitive_type_profile"`
	CoreTableProfile          ProfileRef          `yaml:"core_table_profile"`
	QueryProfile              ProfileRef          `yaml:"query_profile"`
	LookupConcurrency         int                 `yaml:"lookup_concurrency"`
	AllowEmptyRulesets        bool                `yaml:"allow_empty_rulesets"`
	PersistValueOnFieldChange *bool               `yaml:"persist_value_on_field_change"`
	Operators                 map[string][]string `yaml:"operators"`
}

// PersistValue reports the persist-on-field-change flag (default true).
func (q QueryBuilderConf) PersistValue() bool {
	return q.PersistValueOnFieldChange == nil || *q.PersistValueOnFieldChange
}

// SubmissionConf holds the submission pipeline settings.
type SubmissionConf struct {
	Workers             int         `yaml:"workers"`
	QueueDepth          int         `yaml:"queue_depth"`
	Steps               []string    `yaml:"steps"`
	SQLExporter         ExporterRef `yaml:"sql_exporter"`
	PDFExporter         ExporterRef `yaml:"pdf_exporter"`
	DefaultErrorMessage string      `yaml:"default_error_message"`
}
