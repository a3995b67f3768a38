package agent

import (
	"testing"
)

func TestParseUseTool(t *testing.T) {
	raw := `REASONING: The user wants the weather, so I need the weather endpoint.
ACTION: use_tool
TOOL: api_caller
PARAMETERS: {"endpoint_name": "get_weather", "path_params": {"city": "tokyo"}}`

	action := ParseAction(raw)
	if action.Kind != ActionUseTool {
		t.Fatalf("expected use_tool, got %s", action.Kind)
	}
	if action.ToolName != "api_caller" {
		t.Errorf("expected tool api_caller, got %q", action.ToolName)
	}
	if action.Parameters["endpoint_name"] != "get_weather" {
		t.Errorf("expected endpoint_name get_weather, got %v", action.Parameters["endpoint_name"])
	}
	pp, ok := action.Parameters["path_params"].(map[string]any)
	if !ok || pp["city"] != "tokyo" {
		t.Errorf("expected nested path_params.city tokyo, got %v", action.Parameters["path_params"])
	}
	if action.Reasoning == "" {
		t.Error("expected reasoning to be captured")
	}
}

func TestParseMultiLineParameters(t *testing.T) {
	raw := `ACTION: use_tool
TOOL: api_caller
PARAMETERS: {
  "endpoint_name": "create_order",
  "body_data": {
    "items": [{"sku": "A-1", "qty": 2}],
    "note": "leave at door"
  }
}`

	action := ParseAction(raw)
	if action.Kind != ActionUseTool {
		t.Fatalf("expected use_tool, got %s", action.Kind)
	}
	body, ok := action.Parameters["body_data"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested body_data map, got %T", action.Parameters["body_data"])
	}
	if body["note"] != "leave at door" {
		t.Errorf("expected note preserved, got %v", body["note"])
	}
	items, ok := body["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 item in body_data.items, got %v", body["items"])
	}
}

func TestParseMalformedParameters(t *testing.T) {
	raw := `ACTION: use_tool
TOOL: calculator
PARAMETERS: {"expression": "2 + 2"`

	action := ParseAction(raw)
	if action.Kind != ActionUseTool {
		t.Fatalf("expected use_tool despite broken params, got %s", action.Kind)
	}
	if len(action.Parameters) != 0 {
		t.Errorf("expected empty parameter map, got %v", action.Parameters)
	}
}

func TestParseParametersFallback(t *testing.T) {
	raw := `ACTION: use_tool
TOOL: calculator
{"expression": "7 * 6"}`

	action := ParseAction(raw)
	if action.Kind != ActionUseTool {
		t.Fatalf("expected use_tool, got %s", action.Kind)
	}
	if action.Parameters["expression"] != "7 * 6" {
		t.Errorf("expected bare JSON line to be picked up, got %v", action.Parameters)
	}
}

func TestParseRespond(t *testing.T) {
	raw := `ACTION: respond
RESPONSE: The weather in Tokyo is sunny.
Pack light clothes.`

	action := ParseAction(raw)
	if action.Kind != ActionRespond {
		t.Fatalf("expected respond, got %s", action.Kind)
	}
	want := "The weather in Tokyo is sunny.\nPack light clothes."
	if action.Text != want {
		t.Errorf("expected multi-line response preserved, got %q", action.Text)
	}
}

func TestParseResponseMarkerInsideReasoning(t *testing.T) {
	raw := `REASONING: the RESPONSE: marker should carry the answer
ACTION: respond
RESPONSE: Hello there`

	action := ParseAction(raw)
	if action.Kind != ActionRespond {
		t.Fatalf("expected respond, got %s", action.Kind)
	}
	if action.Text != "Hello there" {
		t.Errorf("expected mid-line marker in reasoning to be ignored, got %q", action.Text)
	}
	if action.Reasoning != "the RESPONSE: marker should carry the answer" {
		t.Errorf("expected full reasoning line, got %q", action.Reasoning)
	}
}

func TestParseBareResponse(t *testing.T) {
	action := ParseAction("RESPONSE: Hello there!")
	if action.Kind != ActionRespond {
		t.Fatalf("expected bare RESPONSE to count as respond, got %s", action.Kind)
	}
	if action.Text != "Hello there!" {
		t.Errorf("expected response text, got %q", action.Text)
	}
}

func TestParseThink(t *testing.T) {
	action := ParseAction("ACTION: think\nREASONING: I still need more information.")
	if action.Kind != ActionThink {
		t.Fatalf("expected think, got %s", action.Kind)
	}
	if action.Reasoning != "I still need more information." {
		t.Errorf("expected reasoning captured, got %q", action.Reasoning)
	}
}

func TestParseUseToolWithoutTool(t *testing.T) {
	action := ParseAction("ACTION: use_tool\nPARAMETERS: {}")
	if action.Kind != ActionUnparseable {
		t.Fatalf("expected unparseable when TOOL line is missing, got %s", action.Kind)
	}
}

func TestParseFreeText(t *testing.T) {
	action := ParseAction("Sure, let me look into that for you.")
	if action.Kind != ActionUnparseable {
		t.Fatalf("expected unparseable for free text, got %s", action.Kind)
	}
}

func TestParseFirstMarkerWins(t *testing.T) {
	raw := `ACTION: respond
ACTION: use_tool
RESPONSE: done`

	action := ParseAction(raw)
	if action.Kind != ActionRespond {
		t.Fatalf("expected first ACTION line to win, got %s", action.Kind)
	}
}
