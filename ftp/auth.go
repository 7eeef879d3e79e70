package ftp

// authenticateUser handles the first step of the login challenge. Only
// USER is legal here; any other verb is a sequence error that costs no
// attempt. A wrong username consumes one attempt. The return value
// reports whether the session may advance to the password step.
func (s *Server) authenticateUser(verb Command, param string) bool {
	if verb != USER {
		s.reply(StatusSyntaxError, "Syntax error")
		s.delayResponse(failureDelay)
		return false
	}

	if !s.creds.MatchUsername(param) {
		s.username = param
		s.failAttempt("User not found")
		return false
	}

	s.username = param
	s.reply(StatusUserOK, "Password required")
	return true
}

// authenticatePassword handles the second step. A match resets the
// attempt counter and reports success; the caller arms the session
// deadline.
func (s *Server) authenticatePassword(verb Command, param string) bool {
	if verb != PASS {
		s.reply(StatusSyntaxError, "Syntax error")
		s.delayResponse(failureDelay)
		return false
	}

	if !s.creds.MatchPassword(param) {
		s.failAttempt("Invalid password")
		return false
	}

	s.reply(StatusUserLoggedIn, "Login successful")
	s.attempts = 0
	s.recordLogin(true)
	s.logger.Info("login successful", "username", s.username)
	return true
}

// failAttempt books one failed attempt and paces the client. Reaching
// the ceiling replies with the lockout message and forces the session
// back to idle; exactly MaxLoginAttempts failures are required.
func (s *Server) failAttempt(msg string) {
	s.attempts++
	if s.attempts >= s.MaxLoginAttempts {
		s.reply(StatusNotLoggedIn, "Too many attempts")
		s.delayResponse(lockoutDelay)
		s.recordLogin(false)
		s.logger.Warn("login locked out", "username", s.username, "attempts", s.attempts)
		s.phase = phaseIdle
		return
	}
	s.reply(StatusNotLoggedIn, msg)
	s.delayResponse(failureDelay)
	s.recordLogin(false)
}
