package urls

// Repository is the source repository of the manager backend and this client
const Repository = "https://github.com/YanXich/xiaozhi-esp32-server"

// Issues is where users report problems with the client or the backend
const Issues = Repository + "/issues"

// IssueHint is the troubleshooting line appended to unexpected failures
func IssueHint() string {
	return "If the problem persists, report it at " + Issues
}
