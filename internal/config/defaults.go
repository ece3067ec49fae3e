package config

const (
	defaultConfigPath     = "~/.config/docmatch/config.toml"
	projectConfigName     = "docmatch.toml"
	defaultBaseDir        = "~/docmatch"
	defaultStateDir       = "~/.local/share/docmatch"
	defaultLogDir         = "~/.local/share/docmatch/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultMinFreeMiB     = 64
	defaultNtfyTimeout    = 10
	defaultBodyTextSuffix = ".txt"
	defaultMergedMarker   = "COMBINADO"
	defaultStrategy       = "greedy"
	defaultCollision      = CollisionRename

	// Environment overrides. UploadFolderEnv is honoured for deployments that
	// already export it for the upload web layer.
	BaseDirEnv      = "DOCMATCH_BASE_DIR"
	UploadFolderEnv = "UPLOAD_FOLDER"
	LogLevelEnv     = "DOCMATCH_LOG_LEVEL"
)

// Orphan collision policies.
const (
	CollisionRename    = "rename"
	CollisionReject    = "reject"
	CollisionOverwrite = "overwrite"
)

// Names of the pipelines shipped by default.
const (
	PipelineInvoices      = "invoices"
	PipelineDisbursements = "disbursements"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir:  defaultBaseDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Preflight: Preflight{
			MinFreeMiB: defaultMinFreeMiB,
		},
		Pipelines: DefaultPipelines(),
	}
}

// DefaultPipelines returns the invoice and disbursement pipelines. Directory
// names are relative to paths.base_dir.
func DefaultPipelines() map[string]Pipeline {
	return map[string]Pipeline{
		PipelineInvoices: {
			PrimaryDir:      "ERP_FACTURAS",
			SupportDir:      "MUISKA_FACTURAS",
			CombinedDir:     "FC_EMPRESA",
			HoldingDir:      "FALTANTES",
			Extensions:      []string{".pdf"},
			BodyTextSuffix:  defaultBodyTextSuffix,
			DatePolicy:      "soft",
			Strategy:        defaultStrategy,
			MergedMarker:    defaultMergedMarker,
			OrphanCollision: defaultCollision,
		},
		PipelineDisbursements: {
			PrimaryDir:      "1.1 ERP COMPROBANTE DE EGRESO",
			SupportDir:      "2.1 BANCO DESPRENDIBLES",
			CombinedDir:     "3 CE EMPRESA",
			HoldingDir:      "FALTANTES CE",
			Extensions:      []string{".pdf"},
			BodyTextSuffix:  defaultBodyTextSuffix,
			DatePolicy:      "strict",
			Strategy:        defaultStrategy,
			MergedMarker:    defaultMergedMarker,
			OrphanCollision: defaultCollision,
		},
	}
}
