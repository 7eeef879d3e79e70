package ftp

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestPwd(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	want := `257 "/" is current directory`
	if out := h.command(sock, "PWD"); !strings.Contains(out, want) {
		t.Errorf("PWD reply = %q, want %q", out, want)
	}
	// PWD is idempotent.
	if out := h.command(sock, "PWD"); !strings.Contains(out, want) {
		t.Errorf("second PWD reply = %q, want %q", out, want)
	}
}

func TestCwdAndCdup(t *testing.T) {
	h := newHarness(t)
	if err := h.fs.MakeDir("/docs"); err != nil {
		t.Fatal(err)
	}
	sock := h.login()

	if out := h.command(sock, "CWD docs"); !strings.Contains(out, "250 CWD command successful") {
		t.Fatalf("CWD reply = %q", out)
	}
	if out := h.command(sock, "PWD"); !strings.Contains(out, `257 "/docs" is current directory`) {
		t.Errorf("PWD reply = %q", out)
	}
	if out := h.command(sock, "CDUP"); !strings.Contains(out, `250 CDUP command successful. Current directory: "/"`) {
		t.Errorf("CDUP reply = %q", out)
	}
	if out := h.command(sock, "CDUP"); !strings.Contains(out, "250 Already at root directory") {
		t.Errorf("CDUP at root reply = %q", out)
	}
}

func TestCwdErrors(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	if out := h.command(sock, "CWD nosuch"); !strings.Contains(out, "550 Directory not found") {
		t.Errorf("CWD missing reply = %q", out)
	}
	if out := h.command(sock, "CWD ../outside"); !strings.Contains(out, "550 Invalid path") {
		t.Errorf("CWD traversal reply = %q", out)
	}
	// Dot keeps the current directory and reports it.
	if out := h.command(sock, "CWD ."); !strings.Contains(out, `257 "/" is current directory`) {
		t.Errorf("CWD . reply = %q", out)
	}
}

func TestStorRetrRoundTrip(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	payload := bytes.Repeat([]byte("abcdefgh"), 250) // 2000 bytes

	up := &fakeSocket{}
	up.in.Write(payload)
	up.peerClosed = true
	h.data.push(up)

	out := h.command(sock, "STOR up.bin")
	if !strings.Contains(out, "150 Ready to receive data") {
		t.Fatalf("STOR reply = %q", out)
	}
	h.tick(8)
	if out := sock.takeOutput(); !strings.Contains(out, "226 Transfer complete") {
		t.Fatalf("STOR final reply = %q", out)
	}
	if got := h.readFile("/up.bin"); got != string(payload) {
		t.Fatalf("stored file differs: %d bytes, want %d", len(got), len(payload))
	}

	down := &fakeSocket{}
	h.data.push(down)
	out = h.command(sock, "RETR up.bin")
	if !strings.Contains(out, "150 Opening data connection") {
		t.Fatalf("RETR reply = %q", out)
	}
	h.tick(8)
	if out := sock.takeOutput(); !strings.Contains(out, "226 Transfer complete") {
		t.Fatalf("RETR final reply = %q", out)
	}
	if !bytes.Equal(down.out.Bytes(), payload) {
		t.Fatalf("retrieved %d bytes, want %d", down.out.Len(), len(payload))
	}
}

func TestRetrThroughputReport(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/rate.bin", strings.Repeat("x", 2048))
	sock := h.login()

	down := &fakeSocket{}
	h.data.push(down)
	h.command(sock, "RETR rate.bin")
	// Four 512-byte chunks plus the finalizing tick, 10ms apart: 2048
	// bytes in 50ms is exactly 40.00 kB/s.
	h.tick(5)
	if out := sock.takeOutput(); !strings.Contains(out, "226 Transfer complete (40.00 kB/s)") {
		t.Errorf("final reply = %q", out)
	}
}

func TestRetrEmptyFileOmitsRate(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/empty.bin", "")
	sock := h.login()

	down := &fakeSocket{}
	h.data.push(down)
	h.command(sock, "RETR empty.bin")
	h.tick(2)
	out := sock.takeOutput()
	if !strings.Contains(out, "226 Transfer complete") {
		t.Fatalf("final reply = %q", out)
	}
	if strings.Contains(out, "kB/s") {
		t.Errorf("zero-byte transfer reported a rate: %q", out)
	}
}

func TestRetrErrors(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	if out := h.command(sock, "RETR"); !strings.Contains(out, "501 No filename given") {
		t.Errorf("RETR no param reply = %q", out)
	}
	if out := h.command(sock, "RETR nosuch.bin"); !strings.Contains(out, "550 File not found") {
		t.Errorf("RETR missing reply = %q", out)
	}
	if out := h.command(sock, "RETR ../outside"); !strings.Contains(out, "550 Invalid path") {
		t.Errorf("RETR traversal reply = %q", out)
	}
	if h.s.transfer.kind != transferNone {
		t.Errorf("transfer armed after failed RETR")
	}
}

func TestRetrDataWriteFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/a.bin", strings.Repeat("x", 100))
	sock := h.login()

	down := &fakeSocket{failWrites: true}
	h.data.push(down)
	h.command(sock, "RETR a.bin")
	h.tick(2)
	if out := sock.takeOutput(); !strings.Contains(out, "426 Transfer aborted") {
		t.Errorf("final reply = %q", out)
	}
	if h.s.transfer.kind != transferNone {
		t.Errorf("transfer still armed after abort")
	}
}

func TestStorConnectTimeoutRemovesPartialFile(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	out := h.command(sock, "STOR gone.bin")
	if !strings.Contains(out, "150 Ready to receive data") {
		t.Fatalf("STOR reply = %q", out)
	}
	h.advance(11 * time.Second)
	if out := sock.takeOutput(); !strings.Contains(out, "425 Can't open data connection") {
		t.Errorf("final reply = %q", out)
	}
	if h.fs.Exists("/gone.bin") {
		t.Errorf("partial file was not removed")
	}
}

func TestSecondTransferRejectedWhileInFlight(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/a.bin", "data")
	sock := h.login()

	// No data socket queued, so the transfer stays pending.
	h.command(sock, "STOR up.bin")
	if out := h.command(sock, "RETR a.bin"); !strings.Contains(out, "450 Transfer already in progress") {
		t.Errorf("RETR reply = %q", out)
	}
	if out := h.command(sock, "LIST"); !strings.Contains(out, "450 Transfer already in progress") {
		t.Errorf("LIST reply = %q", out)
	}
}

func TestAbor(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	// Without a transfer ABOR is a plain acknowledgment.
	out := h.command(sock, "ABOR")
	if !strings.Contains(out, "226 ABOR command successful") {
		t.Errorf("ABOR reply = %q", out)
	}
	if strings.Contains(out, "426") {
		t.Errorf("idle ABOR reported an aborted transfer: %q", out)
	}

	h.command(sock, "STOR up.bin")
	out = h.command(sock, "ABOR")
	if !strings.Contains(out, "426 Transfer aborted") || !strings.Contains(out, "226 ABOR command successful") {
		t.Errorf("ABOR with transfer reply = %q", out)
	}
	if h.s.transfer.kind != transferNone {
		t.Errorf("transfer still armed after ABOR")
	}
}

func TestPasv(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	out := h.command(sock, "PASV")
	want := "227 Entering Passive Mode (127,0,0,1,217,48)"
	if !strings.Contains(out, want) {
		t.Errorf("PASV reply = %q, want %q", out, want)
	}
}

func TestPortThenActiveRetr(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/a.bin", "hello")
	sock := h.login()

	if out := h.command(sock, "PORT 127,0,0,1,200,10"); !strings.Contains(out, "200 PORT command successful") {
		t.Fatalf("PORT reply = %q", out)
	}

	down := &fakeSocket{}
	h.dial.sock = down
	h.command(sock, "RETR a.bin")
	h.tick(4)

	if h.dial.calls == 0 {
		t.Fatal("dialer was never called")
	}
	if got, want := h.dial.gotPort, uint16(200<<8|10); got != want {
		t.Errorf("dialed port = %d, want %d", got, want)
	}
	if h.dial.gotAddr.String() != "127.0.0.1" {
		t.Errorf("dialed addr = %s, want 127.0.0.1", h.dial.gotAddr)
	}
	if down.out.String() != "hello" {
		t.Errorf("retrieved %q, want %q", down.out.String(), "hello")
	}
}

func TestPortMalformed(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	for _, param := range []string{"", "1,2,3", "1,2,3,4,5", "256,0,0,1,0,1", "a,b,c,d,e,f", "1,2,3,4,5,6,7"} {
		out := h.command(sock, "PORT "+param)
		if !strings.Contains(out, "501 Invalid PORT format") {
			t.Errorf("PORT %q reply = %q", param, out)
		}
	}
}

func TestList(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/a.txt", "hello")
	if err := h.fs.MakeDir("/docs"); err != nil {
		t.Fatal(err)
	}
	sock := h.login()

	data := &fakeSocket{}
	h.data.push(data)
	out := h.command(sock, "LIST")
	if !strings.Contains(out, "150 Opening ASCII mode data connection for file list") {
		t.Fatalf("LIST reply = %q", out)
	}
	h.tick(3)
	if out := sock.takeOutput(); !strings.Contains(out, "226 2 matches total") {
		t.Errorf("final reply = %q", out)
	}
	want := "-rw-r--r-- 1 owner group 5 Jan 1 2000 a.txt\r\n" +
		"drwxr-xr-x 1 owner group 0 Jan 1 2000 docs\r\n"
	if got := data.out.String(); got != want {
		t.Errorf("listing = %q, want %q", got, want)
	}
}

func TestMlsd(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/a.txt", "hello")
	if err := h.fs.MakeDir("/docs"); err != nil {
		t.Fatal(err)
	}
	sock := h.login()

	data := &fakeSocket{}
	h.data.push(data)
	out := h.command(sock, "MLSD")
	if !strings.Contains(out, "150 Opening ASCII mode data connection for MLSD") {
		t.Fatalf("MLSD reply = %q", out)
	}
	h.tick(3)
	if out := sock.takeOutput(); !strings.Contains(out, "226 2 matches total") {
		t.Errorf("final reply = %q", out)
	}
	want := "Type=file;Size=5;Modify=20000101000000; a.txt\r\n" +
		"Type=dir;Size=0;Modify=20000101000000; docs\r\n"
	if got := data.out.String(); got != want {
		t.Errorf("listing = %q, want %q", got, want)
	}
}

func TestListMissingDirectory(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	if out := h.command(sock, "LIST nosuch"); !strings.Contains(out, "550 Directory not found") {
		t.Errorf("LIST reply = %q", out)
	}
	if out := h.command(sock, "MLSD nosuch"); !strings.Contains(out, "550 Directory not found") {
		t.Errorf("MLSD reply = %q", out)
	}
}

func TestDele(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/a.txt", "hello")
	sock := h.login()

	if out := h.command(sock, "DELE"); !strings.Contains(out, "501 No filename given") {
		t.Errorf("DELE no param reply = %q", out)
	}
	if out := h.command(sock, "DELE nosuch"); !strings.Contains(out, "550 File not found") {
		t.Errorf("DELE missing reply = %q", out)
	}
	if out := h.command(sock, "DELE a.txt"); !strings.Contains(out, "250 File deleted") {
		t.Errorf("DELE reply = %q", out)
	}
	if h.fs.Exists("/a.txt") {
		t.Errorf("file still exists after DELE")
	}
}

func TestMkdAndRmd(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	if out := h.command(sock, "MKD newdir"); !strings.Contains(out, `257 "/newdir" created`) {
		t.Fatalf("MKD reply = %q", out)
	}
	if !h.fs.IsDir("/newdir") {
		t.Fatal("directory was not created")
	}
	if out := h.command(sock, "MKD newdir"); !strings.Contains(out, "550 Can't create directory") {
		t.Errorf("duplicate MKD reply = %q", out)
	}

	h.writeFile("/newdir/a.txt", "x")
	if out := h.command(sock, "RMD newdir"); !strings.Contains(out, "550 Directory not empty") {
		t.Errorf("RMD non-empty reply = %q", out)
	}
	if err := h.fs.Remove("/newdir/a.txt"); err != nil {
		t.Fatal(err)
	}
	if out := h.command(sock, "RMD newdir"); !strings.Contains(out, "250 Directory removed") {
		t.Errorf("RMD reply = %q", out)
	}
	if out := h.command(sock, "RMD newdir"); !strings.Contains(out, "550 Not a directory or doesn't exist") {
		t.Errorf("RMD missing reply = %q", out)
	}
}

func TestRename(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/a.txt", "source")
	h.writeFile("/b.txt", "occupied")
	sock := h.login()

	if out := h.command(sock, "RNTO b.txt"); !strings.Contains(out, "503 RNFR required first") {
		t.Errorf("RNTO without RNFR reply = %q", out)
	}
	if out := h.command(sock, "RNFR nosuch"); !strings.Contains(out, "550 File not found") {
		t.Errorf("RNFR missing reply = %q", out)
	}

	if out := h.command(sock, "RNFR a.txt"); !strings.Contains(out, "350 RNFR accepted - ready for destination") {
		t.Fatalf("RNFR reply = %q", out)
	}
	if out := h.command(sock, "RNTO b.txt"); !strings.Contains(out, "553 Destination already exists") {
		t.Errorf("RNTO occupied reply = %q", out)
	}
	if !h.fs.Exists("/a.txt") {
		t.Fatal("source vanished after refused rename")
	}

	// A refused RNTO consumes the RNFR.
	if out := h.command(sock, "RNTO c.txt"); !strings.Contains(out, "503 RNFR required first") {
		t.Errorf("RNTO after refusal reply = %q", out)
	}

	h.command(sock, "RNFR a.txt")
	if out := h.command(sock, "RNTO c.txt"); !strings.Contains(out, "250 Rename successful") {
		t.Errorf("RNTO reply = %q", out)
	}
	if h.fs.Exists("/a.txt") || !h.fs.Exists("/c.txt") {
		t.Errorf("rename did not move the file")
	}
}

func TestSize(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/a.txt", "hello")
	if err := h.fs.MakeDir("/docs"); err != nil {
		t.Fatal(err)
	}
	sock := h.login()

	if out := h.command(sock, "SIZE a.txt"); !strings.Contains(out, "213 5") {
		t.Errorf("SIZE reply = %q", out)
	}
	if out := h.command(sock, "SIZE docs"); !strings.Contains(out, "550 File not found") {
		t.Errorf("SIZE dir reply = %q", out)
	}
	if out := h.command(sock, "SIZE nosuch"); !strings.Contains(out, "550 File not found") {
		t.Errorf("SIZE missing reply = %q", out)
	}
}

func TestType(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	tests := []struct {
		param string
		want  string
	}{
		{"A", "200 Type set to ASCII"},
		{"I", "200 Type set to binary"},
		{"a", "200 Type set to ASCII"},
		{"E", "504 Unsupported type"},
	}
	for _, tt := range tests {
		if out := h.command(sock, "TYPE "+tt.param); !strings.Contains(out, tt.want) {
			t.Errorf("TYPE %s reply = %q, want %q", tt.param, out, tt.want)
		}
	}
}

func TestSystAndFeat(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	if out := h.command(sock, "SYST"); !strings.Contains(out, "215 UNIX Type: L8") {
		t.Errorf("SYST reply = %q", out)
	}

	out := h.command(sock, "FEAT")
	for _, want := range []string{"211-Extensions supported:", " MLSD", " SIZE", " MDTM", "211 End"} {
		if !strings.Contains(out, want) {
			t.Errorf("FEAT reply %q missing %q", out, want)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	if out := h.command(sock, "XYZZY"); !strings.Contains(out, "500 Unknown command") {
		t.Errorf("reply = %q", out)
	}
}

func TestQuit(t *testing.T) {
	h := newHarness(t)
	sock := h.login()

	out := h.command(sock, "QUIT")
	if !strings.Contains(out, "221 Goodbye") {
		t.Errorf("QUIT reply = %q", out)
	}
	if !sock.closed {
		t.Errorf("control connection left open after QUIT")
	}
	if h.s.phase.inService() {
		t.Errorf("phase = %v, want out of service", h.s.phase)
	}
}
