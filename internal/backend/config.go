package backend

import (
	"errors"
	"fmt"

	"budget/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		RemoteType:  RemoteType(appConfig.RemoteBackend),
		DatabaseURL: appConfig.DatabaseURL,

		SheetsType:               SheetsType(appConfig.SheetsBackend),
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleOAuthClientFile:    appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:     appConfig.GoogleOAuthTokenFile,
		GoogleOAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		GoogleOAuthTokenJSON:     appConfig.GoogleOAuthTokenJSON,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !c.RemoteType.IsValid() {
		return fmt.Errorf("invalid remote backend: %s", c.RemoteType)
	}
	if !c.SheetsType.IsValid() {
		return fmt.Errorf("invalid sheets backend: %s", c.SheetsType)
	}
	if c.RemoteType == RemotePostgres && c.DatabaseURL == "" {
		return errors.New("database url is required for postgres remote backend")
	}
	if c.SheetsType == SheetsGoogle && c.GoogleSpreadsheetID == "" {
		return errors.New("Google Spreadsheet ID is required for google sheets backend")
	}
	return nil
}
