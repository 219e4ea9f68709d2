package practicum

import "fmt"

// Verdict texts keyed by homework status. The exact strings are part of
// the notification contract; do not edit casually.
var homeworkVerdicts = map[string]string{
	"approved":  "Работа проверена: ревьюеру всё понравилось. Ура!",
	"reviewing": "Работа взята на проверку ревьюером.",
	"rejected":  "Работа проверена: у ревьюера есть замечания.",
}

// ParseStatus builds the status-change notification text for one homework.
func ParseStatus(hw Homework) (string, error) {
	if hw.Name == "" {
		return "", &ItemError{Reason: "homework_name is missing or empty"}
	}
	verdict, ok := homeworkVerdicts[hw.Status]
	if !ok {
		return "", &ItemError{Reason: fmt.Sprintf("unknown status %q", hw.Status)}
	}
	return fmt.Sprintf("Изменился статус проверки работы %q. %s", hw.Name, verdict), nil
}
