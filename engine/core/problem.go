package core

import "net/http"

// Problem captures the information returned in an RFC 7807 error response.
type Problem struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string
	Extras   map[string]any
}

// NormalizeProblem ensures the provided problem includes canonical defaults.
func NormalizeProblem(problem *Problem) *Problem {
	if problem == nil {
		problem = &Problem{}
	}
	if problem.Status == 0 {
		problem.Status = http.StatusInternalServerError
	}
	if problem.Title == "" {
		problem.Title = http.StatusText(problem.Status)
	}
	if problem.Type == "" {
		problem.Type = "about:blank"
	}
	return problem
}

// ProblemFromError maps the service error taxonomy onto an HTTP problem.
func ProblemFromError(err error, instance string) *Problem {
	status := http.StatusInternalServerError
	switch KindOf(err) {
	case KindInvalidInput:
		status = http.StatusBadRequest
	case KindUnavailable:
		status = http.StatusServiceUnavailable
	}
	return NormalizeProblem(&Problem{
		Status:   status,
		Detail:   err.Error(),
		Instance: instance,
	})
}

// BuildProblemBody assembles the serialized representation of the problem.
func BuildProblemBody(problem *Problem) map[string]any {
	body := map[string]any{
		"status": problem.Status,
		"error":  problem.Title,
	}
	if problem.Detail != "" {
		body["details"] = problem.Detail
	}
	if problem.Type != "" {
		body["type"] = problem.Type
	}
	if problem.Instance != "" {
		body["instance"] = problem.Instance
	}
	for key, value := range problem.Extras {
		if _, exists := body[key]; !exists {
			body[key] = value
		}
	}
	return body
}
