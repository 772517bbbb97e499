package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig is the on-disk shape of the server JSON config.
type StructuredJSONConfig struct {
	Auth struct {
		JWTSecret     string   `json:"jwt_secret"`
		TokenIssuer   string   `json:"token_issuer"`
		TokenDuration Duration `json:"token_duration"`
	} `json:"auth,omitempty"`

	Envelope struct {
		ChecksumKey      string `json:"checksum_key"`
		VerifySignatures bool   `json:"verify_signatures"`
	} `json:"envelope,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Server struct {
		Host           string   `json:"host"`
		Port           int      `json:"port"`
		GRPCAddress    string   `json:"grpc_address"`
		RequestTimeout Duration `json:"request_timeout"`
		RateLimit      int      `json:"rate_limit"`
		RateWindow     Duration `json:"rate_window"`
	} `json:"server,omitempty"`

	Workers struct {
		ProbeInterval Duration `json:"probe_interval"`
	} `json:"workers,omitempty"`
}

// ClientJSONConfig is the on-disk shape of the client JSON config.
type ClientJSONConfig struct {
	ServerURL   string   `json:"server_url"`
	Token       string   `json:"token"`
	UserID      string   `json:"user_id"`
	DBPath      string   `json:"db_path"`
	Timeout     Duration `json:"timeout"`
	Retries     int      `json:"retries"`
	RetryWait   Duration `json:"retry_wait"`
	Interval    Duration `json:"interval"`
	LogFile     string   `json:"log_file"`
	Sealer      string   `json:"sealer"`
	Passphrase  string   `json:"passphrase"`
	ChecksumKey string   `json:"checksum_key"`
}

func decodeJSONFile(path string, dst any) error {
	jsonFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	if err := json.NewDecoder(jsonFile).Decode(dst); err != nil {
		return fmt.Errorf("error decoding json configs: %w", err)
	}
	return nil
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	var jsonCfg StructuredJSONConfig
	if err := decodeJSONFile(jsonFilePath, &jsonCfg); err != nil {
		return nil, err
	}

	return &StructuredConfig{
		App: App{
			JWTSecret:        jsonCfg.Auth.JWTSecret,
			TokenIssuer:      jsonCfg.Auth.TokenIssuer,
			TokenDuration:    time.Duration(jsonCfg.Auth.TokenDuration),
			ChecksumKey:      jsonCfg.Envelope.ChecksumKey,
			VerifySignatures: jsonCfg.Envelope.VerifySignatures,
		},
		Storage: Storage{
			DB: DB{DSN: jsonCfg.Storage.DB.DSN},
		},
		Server: Server{
			Host:           jsonCfg.Server.Host,
			Port:           jsonCfg.Server.Port,
			GRPCAddress:    jsonCfg.Server.GRPCAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
			RateLimit:      jsonCfg.Server.RateLimit,
			RateWindow:     time.Duration(jsonCfg.Server.RateWindow),
		},
		Workers: Workers{
			ProbeInterval: time.Duration(jsonCfg.Workers.ProbeInterval),
		},
	}, nil
}

func parseClientJSON(jsonFilePath string) (*ClientConfig, error) {
	var jsonCfg ClientJSONConfig
	if err := decodeJSONFile(jsonFilePath, &jsonCfg); err != nil {
		return nil, err
	}

	return &ClientConfig{
		ServerURL:   jsonCfg.ServerURL,
		Token:       jsonCfg.Token,
		UserID:      jsonCfg.UserID,
		DBPath:      jsonCfg.DBPath,
		Timeout:     time.Duration(jsonCfg.Timeout),
		Retries:     jsonCfg.Retries,
		RetryWait:   time.Duration(jsonCfg.RetryWait),
		Interval:    time.Duration(jsonCfg.Interval),
		LogFile:     jsonCfg.LogFile,
		Sealer:      jsonCfg.Sealer,
		Passphrase:  jsonCfg.Passphrase,
		ChecksumKey: jsonCfg.ChecksumKey,
	}, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
