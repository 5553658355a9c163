package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	requestSchema := compile("login_request.schema.json")
	successSchema := compile("login_success.schema.json")
	deniedSchema := compile("login_denied.schema.json")

	var request any
	_ = json.Unmarshal([]byte(`{
	  "type":"LOGIN",
	  "protocol_version":"1.1",
	  "first_name":"Test",
	  "last_name":"Resident",
	  "credential":"$1$0123456789abcdef0123456789abcdef",
	  "start_location":"home",
	  "channel":"AuroraViewer",
	  "version":"7.1.2"
	}`), &request)
	validate(requestSchema, request)

	var success any
	_ = json.Unmarshal([]byte(`{
	  "type":"LOGIN_OK",
	  "protocol_version":"1.1",
	  "principal":"11111111-2222-3333-4444-555555555555",
	  "first_name":"Test",
	  "last_name":"Resident",
	  "access_level":0,
	  "session_id":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
	  "secure_session_id":"ffffffff-1111-2222-3333-444444444444",
	  "circuit_code":1208745,
	  "seed_capability":"http://127.0.0.1:9000/CAPS/deadbeef0000/",
	  "destination":{
	    "region_id":"00000000-0000-0000-0000-00000000d001",
	    "name":"Aurora Plaza",
	    "grid_x":1000,
	    "grid_y":1000,
	    "handle":1099511628032256000,
	    "base_url":"http://127.0.0.1:9000"
	  },
	  "reason":"home",
	  "position":{"x":128,"y":128,"z":24.5},
	  "look_at":{"x":1,"y":0,"z":0},
	  "inventory_root":"99999999-0000-0000-0000-000000000000",
	  "maturity":"M",
	  "max_maturity":"A",
	  "grid":{"welcome_message":"Welcome"}
	}`), &success)
	validate(successSchema, success)

	var denied any
	_ = json.Unmarshal([]byte(`{
	  "type":"LOGIN_DENIED",
	  "protocol_version":"1.1",
	  "code":"E_TEMPORARY_BANNED",
	  "message":"account is suspended until Fri, 05 Sep 2025 00:00:00 UTC"
	}`), &denied)
	validate(deniedSchema, denied)
}
