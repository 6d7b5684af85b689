package registrar

import "context"

// Payload is the JSON body accepted by the remote registration service.
type Payload struct {
	EmpName     string `json:"emp_name"`
	EmpEmail    string `json:"emp_email"`
	Mobile      string `json:"mobile"`
	EmpGender   string `json:"emp_gender"`
	EmpPassword string `json:"emp_password"`
	State       string `json:"state"`
	City        string `json:"city"`
	EmpStatus   string `json:"emp_status"`
}

// Response is the part of the remote reply the registration flow consumes.
// SecretToken and Message are nil when absent from the body.
type Response struct {
	StatusCode  int
	SecretToken *string
	Message     *string
}

// Registrar sends one registration request. It never retries.
//
// A returned error means the request could not be completed or a 200 body could
// not be decoded; any HTTP status that was received is reported in Response instead.
type Registrar interface {
	Register(ctx context.Context, bearerToken string, p Payload) (Response, error)
}
