package domain

import "testing"

func TestStatusErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *StatusError
		want string
	}{
		{
			name: "json body keeps key order",
			err:  &StatusError{Op: "create", StatusCode: 500, Body: []byte(`{"statusCode": 500, "message": "lol"}`)},
			want: `Failed to create job: {"statusCode":500,"message":"lol"}`,
		},
		{
			name: "delete with error body",
			err:  &StatusError{Op: "delete", StatusCode: 500, Body: []byte(`{"error":"foo"}`)},
			want: `Failed to delete job: {"error":"foo"}`,
		},
		{
			name: "plain text body",
			err:  &StatusError{Op: "create", StatusCode: 502, Body: []byte("bad gateway")},
			want: `Failed to create job: "bad gateway"`,
		},
		{
			name: "empty body",
			err:  &StatusError{Op: "delete", StatusCode: 404},
			want: `Failed to delete job: null`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
