package backend

import (
	"fmt"

	"finclient/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	storeType := SessionStoreType(appConfig.SessionStore)
	if !storeType.IsValid() {
		return Config{}, fmt.Errorf("invalid session store in config: %s", appConfig.SessionStore)
	}

	return Config{
		APIBaseURL: appConfig.APIBaseURL,
		APITimeout: appConfig.APITimeout,

		SessionStore:  storeType,
		SessionFile:   appConfig.SessionFile,
		SessionDBPath: appConfig.SessionDBPath,

		CacheMaxEntries: appConfig.CacheMaxEntries,
		Currency:        appConfig.Currency,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	if !c.SessionStore.IsValid() {
		return fmt.Errorf("invalid session store: %s", c.SessionStore)
	}

	switch c.SessionStore {
	case FileStore:
		if c.SessionFile == "" {
			return fmt.Errorf("session file path is required for file session store")
		}
	case SQLiteStore:
		if c.SessionDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite session store")
		}
	case MemoryStore:
		// Nothing to configure; the session ends with the process.
	}

	// AMQP is optional; the exchange only matters once a URL is set.
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		return fmt.Errorf("AMQP exchange is required when AMQP URL is set")
	}

	return nil
}

// GetSessionStoreTypes returns all valid session store types
func GetSessionStoreTypes() []SessionStoreType {
	return []SessionStoreType{FileStore, SQLiteStore, MemoryStore}
}

// GetSessionStoreTypeStrings returns all valid session store type strings
func GetSessionStoreTypeStrings() []string {
	types := GetSessionStoreTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
