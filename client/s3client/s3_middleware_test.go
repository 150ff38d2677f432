package s3client

import (
	"context"
	"fmt"
	"testing"
)

func TestKeyPrefixMiddleware_Golden(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "adds prefix", prefix: "prod", key: "streams.json", want: "prod/streams.json"},
		{name: "trims slashes", prefix: "/prod/", key: "streams.json", want: "prod/streams.json"},
		{name: "already prefixed", prefix: "prod", key: "prod/streams.json", want: "prod/streams.json"},
		{name: "empty prefix is a no-op", prefix: "", key: "streams.json", want: "streams.json"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := &S3Request{Operation: OperationGet, Bucket: "b", Key: tc.key}
			if err := KeyPrefixMiddleware(tc.prefix)(context.Background(), r); err != nil {
				t.Fatalf("middleware error: %v", err)
			}
			if r.Key != tc.want {
				t.Fatalf("key=%q; want %q", r.Key, tc.want)
			}
		})
	}
}

func ExampleKeyPrefixMiddleware() {
	r := &S3Request{Operation: OperationGet, Key: "streams.json"}
	_ = KeyPrefixMiddleware("staging")(context.Background(), r)
	fmt.Println(r.Key)
	// Output: staging/streams.json
}
