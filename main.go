// Description: This is the main file of the ftp engine
// The main function wires the poll-driven FTP engine to real TCP
// listeners and a local directory, then ticks it until a signal arrives.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/telebroad/ftpengine/audit"
	"github.com/telebroad/ftpengine/filesystem"
	"github.com/telebroad/ftpengine/ftp"
	"github.com/telebroad/ftpengine/transport"
	"github.com/telebroad/ftpengine/users"
)

func main() {

	// setting up the slog logger
	logger := setupLogger()
	slog.SetDefault(logger)

	logger.Debug("Starting FTP engine")
	env, err := GetEnv(logger)
	if err != nil {
		logger.Error("Error getting environment", "error", err)
		os.Exit(1)
	}

	// create the user
	creds, err := users.New(env.DefaultUser, env.DefaultPass)
	if err != nil {
		logger.Error("Error creating user", "error", err)
		os.Exit(1)
	}

	// file system
	localFS := filesystem.NewLocalFS(env.FtpServerRoot)

	ctrlListener, err := transport.Listen(env.FtpAddr)
	if err != nil {
		logger.Error("Error opening control listener", "error", err)
		os.Exit(1)
	}
	defer ctrlListener.Close()

	dataListener, err := transport.Listen(fmt.Sprintf(":%d", env.PasvPort))
	if err != nil {
		logger.Error("Error opening passive data listener", "error", err)
		os.Exit(1)
	}
	defer dataListener.Close()

	// ftp engine
	ftpServer := ftp.NewServer(ctrlListener, dataListener, &transport.TCPDialer{}, localFS, creds)
	ftpServer.SetLogger(logger.With("module", "ftp-engine"))
	ftpServer.PassivePort = env.PasvPort
	// seting the public server ip for passive mode
	if err := ftpServer.SetPublicServerIPv4(env.FtpServerIPv4); err != nil {
		logger.Error("Error setting public server ip", "error", err)
		os.Exit(1)
	}

	// optional audit trail
	if env.AuditDB != "" {
		store, err := audit.Open(env.AuditDB)
		if err != nil {
			logger.Error("Error opening audit database", "error", err)
			os.Exit(1)
		}
		store.SetLogger(logger.With("module", "audit"))
		defer store.Close()
		ftpServer.SetRecorder(store)
	}

	logger.Info("FTP engine started", "addr", env.FtpAddr, "pasv_port", env.PasvPort)

	stopChan := make(chan os.Signal, 1)
	signal.Notify(
		stopChan,
		syscall.SIGHUP,  // (0x1) Terminal hangup
		syscall.SIGINT,  // (0x2) Interrupt from keyboard (Ctrl+C)
		syscall.SIGQUIT, // (0x3) Quit from keyboard
		syscall.SIGTERM, // (0xf) Terminated (generic termination signal)
	)

	// poll loop: tick fast while a session or transfer is in flight,
	// back off when idle
	for {
		select {
		case sig := <-stopChan:
			logger.Info("FTP engine stopped", "signal", sig.String())
			return
		default:
		}
		if ftpServer.Poll(time.Now()) {
			time.Sleep(time.Millisecond)
		} else {
			time.Sleep(20 * time.Millisecond)
		}
	}
}

func setupLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	AddSource := false
	switch os.Getenv("LOG_LEVEL") {

	case "DEBUG":
		logLevel = slog.LevelDebug
		AddSource = true
	case "INFO":
		logLevel = slog.LevelInfo
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	}

	handlerOptions := &tint.Options{
		AddSource:   AddSource,
		Level:       logLevel, // Only log messages of level INFO and above
		ReplaceAttr: nil,
	}

	handler := tint.NewHandler(os.Stdout, handlerOptions)

	logger := slog.New(handler).With("app", "ftp-engine")
	logger.Info("Logger initialized", "level", logLevel)

	return logger
}

// Environment is the environment of the server
type Environment struct {
	FtpAddr       string
	FtpServerIPv4 string
	FtpServerRoot string
	PasvPort      uint16
	DefaultUser   string
	DefaultPass   string
	AuditDB       string
}

// GetEnv returns a new Environment with the environment variables
func GetEnv(logger *slog.Logger) (env *Environment, err error) {
	env = &Environment{}
	// this is the public ip of the server FOR PASV mode
	env.FtpServerIPv4 = os.Getenv("FTP_SERVER_IPV4")
	if env.FtpServerIPv4 == "" {
		// Set a default FTP_SERVER_IPV4 if the environment variable is not set
		logger.Info("FTP_SERVER_IPV4 was empty so Getting public ip from ipify.org...")
		env.FtpServerIPv4, err = ftp.GetServerPublicIP()
		if err != nil {
			return nil, fmt.Errorf("error getting public ip: %w", err)
		}
	}

	env.FtpAddr = os.Getenv("FTP_SERVER_ADDR")
	if env.FtpAddr == "" {
		env.FtpAddr = ":21"
	}

	env.PasvPort = 55600
	if p := os.Getenv("FTP_PASV_PORT"); p != "" {
		port, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("error parsing FTP_PASV_PORT: %w", err)
		}
		env.PasvPort = uint16(port)
	}

	env.FtpServerRoot = os.Getenv("FTP_SERVER_ROOT")
	if env.FtpServerRoot == "" {
		env.FtpServerRoot = "/static"
	}

	env.DefaultUser = os.Getenv("FTP_DEFAULT_USER")
	if env.DefaultUser == "" {
		env.DefaultUser = "admin"
	}
	env.DefaultPass = os.Getenv("FTP_DEFAULT_PASS")
	if env.DefaultPass == "" {
		env.DefaultPass = "admin"
	}

	env.AuditDB = os.Getenv("FTP_AUDIT_DB")

	logger.Debug("FTP_SERVER_ADDR is", "addr", env.FtpAddr)
	logger.Debug("FTP_PASV_PORT is", "port", env.PasvPort)
	logger.Debug("FTP_SERVER_ROOT is", "root", env.FtpServerRoot)
	logger.Debug("FTP_DEFAULT_USER is", "username", env.DefaultUser)

	return env, nil
}
