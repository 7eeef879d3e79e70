// Package ftp implements a single-session FTP server protocol engine.
// The engine owns at most one control connection at a time and is driven
// entirely by repeated calls to Server.Poll: it never starts goroutines
// and never blocks, so it can be ticked from an embedded-style event loop.
// Transport and filesystem access go through small interfaces so the
// engine itself carries no socket or disk code.
package ftp

// ServerVersion is reported in the connection greeting.
const ServerVersion = "1.2.0"

// StatusCode is a three-digit FTP reply code.
type StatusCode = int

const (
	// Informational codes (1xx)
	StatusFileStatusOK StatusCode = 150 // File status okay; about to open data connection

	// Success codes (2xx)
	StatusCommandOK                       StatusCode = 200 // Command okay
	StatusSystemStatus                    StatusCode = 211 // System status, or system help reply
	StatusFileStatus                      StatusCode = 213 // File status
	StatusNameSystemType                  StatusCode = 215 // NAME system type
	StatusServiceReadyForNewUser          StatusCode = 220 // Service ready for new user
	StatusServiceClosingControlConnection StatusCode = 221 // Service closing control connection
	StatusClosingDataConnection           StatusCode = 226 // Closing data connection; requested file action successful
	StatusEnteringPassiveMode             StatusCode = 227 // Entering Passive Mode (h1,h2,h3,h4,p1,p2)
	StatusUserLoggedIn                    StatusCode = 230 // User logged in, proceed
	StatusFileActionOK                    StatusCode = 250 // Requested file action okay, completed
	StatusPathnameCreated                 StatusCode = 257 // "PATHNAME" created

	// Intermediate codes (3xx)
	StatusUserOK            StatusCode = 331 // User name okay, need password
	StatusFileActionPending StatusCode = 350 // Requested file action pending further information

	// Transient negative codes (4xx)
	StatusCantOpenDataConnection StatusCode = 425 // Can't open data connection
	StatusTransferAborted        StatusCode = 426 // Connection closed; transfer aborted
	StatusFileActionNotTaken     StatusCode = 450 // Requested file action not taken
	StatusLocalProcessingError   StatusCode = 451 // Requested action aborted: local error in processing

	// Permanent negative codes (5xx)
	StatusSyntaxError                   StatusCode = 500 // Syntax error, command unrecognized
	StatusSyntaxErrorInParameters       StatusCode = 501 // Syntax error in parameters or arguments
	StatusBadSequenceOfCommands         StatusCode = 503 // Bad sequence of commands
	StatusCommandNotImplementedForParam StatusCode = 504 // Command not implemented for that parameter
	StatusNotLoggedIn                   StatusCode = 530 // Not logged in
	StatusFileUnavailable               StatusCode = 550 // Requested action not taken; file unavailable
	StatusFileNameNotAllowed            StatusCode = 553 // Requested action not taken; file name not allowed
)

// Command is an FTP command verb.
type Command = string

const (
	// Authentication commands
	USER Command = "USER" // Send username
	PASS Command = "PASS" // Send password

	// Transfer parameter commands
	TYPE Command = "TYPE" // Set data transfer type (ASCII/Binary)
	PASV Command = "PASV" // Enter passive mode
	PORT Command = "PORT" // Set the active-mode data address

	// Service commands
	RETR Command = "RETR" // Retrieve a file
	STOR Command = "STOR" // Store a file
	ABOR Command = "ABOR" // Abort an active transfer
	DELE Command = "DELE" // Delete a file
	CWD  Command = "CWD"  // Change working directory
	CDUP Command = "CDUP" // Change to parent directory
	MKD  Command = "MKD"  // Make directory
	RMD  Command = "RMD"  // Remove directory
	RNFR Command = "RNFR" // Rename from (start the rename process)
	RNTO Command = "RNTO" // Rename to (finish the rename process)

	// Informational commands
	PWD  Command = "PWD"  // Print working directory
	LIST Command = "LIST" // List directory contents
	MLSD Command = "MLSD" // Machine-readable directory listing
	SIZE Command = "SIZE" // Get the size of a file
	SYST Command = "SYST" // Get operating system type
	FEAT Command = "FEAT" // Get the supported features

	// Miscellaneous
	NOOP Command = "NOOP" // No operation (keeps the connection alive)
	QUIT Command = "QUIT" // Disconnect from the server
)
