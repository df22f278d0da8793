package ircd

// SendWelcome emits numerics 1-5 immediately after successful NICK/USER
// registration (spec.md §4.6, §6 IRC wire format).
func SendWelcome(u *User) {
	_ = u.Writef(":%s %d %s :Welcome to the %s Network, %s", serverName, RPL_WELCOME, u.Nick, network, u.Prefix())
	_ = u.Writef(":%s %d %s :Your host is %s, running version vision3ircd-1.0", serverName, RPL_YOURHOST, u.Nick, serverName)
	_ = u.Writef(":%s %d %s :This server was created for the %s network", serverName, RPL_CREATED, u.Nick, network)
	_ = u.Writef(":%s %d %s %s vision3ircd-1.0 i qaohv Sjlmnprstz", serverName, RPL_MYINFO, u.Nick, serverName)
	for _, line := range chunkISUPPORT(ISUPPORTTokens) {
		_ = u.Writef(":%s %d %s %s :are supported by this server", serverName, RPL_ISUPPORT, u.Nick, line)
	}
}

// chunkISUPPORT splits the token list into space-joined lines, at most 13
// tokens each, mirroring how real IRCds avoid overlong 005 lines.
func chunkISUPPORT(tokens []string) []string {
	const perLine = 13
	var lines []string
	for i := 0; i < len(tokens); i += perLine {
		end := i + perLine
		if end > len(tokens) {
			end = len(tokens)
		}
		line := ""
		for j, t := range tokens[i:end] {
			if j > 0 {
				line += " "
			}
			line += t
		}
		lines = append(lines, line)
	}
	return lines
}
