package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses the server flags from args (usually os.Args[1:]).
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-grpc-address grpc server address in format [host]:[port]
//	-d database DSN
//	-c/-config json file path with configs
//	-jwt-secret token signing key
//	-token-issuer token issuer name
//	-token-duration token duration (e.g., "1h", "30m")
//	-checksum-key delta checksum key
//	-verify-signatures reject uploads with a foreign envelope signature
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-rate-limit requests per client IP per rate window
//	-probe-interval backend probe period while degraded
func ParseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("sync-server", flag.ContinueOnError)

	var serverAddress NetAddress
	var grpcAddress, databaseDSN, jsonConfigPath string
	var jwtSecret, tokenIssuer, checksumKey string
	var tokenDuration, requestTimeout, probeInterval time.Duration
	var rateLimit int
	var verifySignatures bool

	fs.Var(&serverAddress, "a", "Net address host:port")
	fs.StringVar(&grpcAddress, "grpc-address", "", "Net grpc server address host:port")
	fs.StringVar(&databaseDSN, "d", "", "Database DSN")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&jwtSecret, "jwt-secret", "", "Token signing key")
	fs.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	fs.DurationVar(&tokenDuration, "token-duration", 0, "Token duration (e.g., 1h, 30m)")
	fs.StringVar(&checksumKey, "checksum-key", "", "Delta checksum key")
	fs.BoolVar(&verifySignatures, "verify-signatures", false, "Reject uploads with a foreign envelope signature")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.IntVar(&rateLimit, "rate-limit", 0, "Requests per client IP per rate window")
	fs.DurationVar(&probeInterval, "probe-interval", 0, "Backend probe period while degraded")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &StructuredConfig{
		App: App{
			JWTSecret:        jwtSecret,
			TokenIssuer:      tokenIssuer,
			TokenDuration:    tokenDuration,
			ChecksumKey:      checksumKey,
			VerifySignatures: verifySignatures,
		},
		Storage: Storage{
			DB: DB{DSN: databaseDSN},
		},
		Server: Server{
			Host:           serverAddress.Host,
			Port:           serverAddress.Port,
			GRPCAddress:    grpcAddress,
			RequestTimeout: requestTimeout,
			RateLimit:      rateLimit,
		},
		Workers: Workers{
			ProbeInterval: probeInterval,
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns "".
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is
// "localhost" or empty, and returns an error if the format or values are
// invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 || port > 65535 {
		return errors.New("port number must be in 1..65535")
	}

	if host != "localhost" && host != "" {
		if ip := net.ParseIP(host); ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
