package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weatherToolSource = `
local WeatherTool = {}
WeatherTool.name = "get_weather"
WeatherTool.endpoint = "https://api.example.com/weather"
WeatherTool.defaults = { units = "metric", retries = 3 }

function WeatherTool.new()
	local self = setmetatable({}, { __index = WeatherTool })
	return self
end

function WeatherTool:call(city)
	local url = self.endpoint .. "?q=" .. city
	return url
end

return WeatherTool
`

func validateSource(def ToolDefinition, checkImports bool) error {
	return ValidateTool(def, NewModuleAllowList(), checkImports)
}

func TestValidateTool_WellFormed(t *testing.T) {
	err := validateSource(ToolDefinition{
		Name:   "WeatherTool",
		Params: []string{"city"},
		Source: weatherToolSource,
	}, true)
	assert.NoError(t, err)
}

func TestValidateTool_ParseError(t *testing.T) {
	err := validateSource(ToolDefinition{
		Name:   "Broken",
		Source: `function Broken:call( end`,
	}, false)
	ve := requireValidationError(t, err)
	assert.Contains(t, ve.Error(), "parse error")
}

func TestValidateTool_UndefinedName(t *testing.T) {
	err := validateSource(ToolDefinition{
		Name:   "Fetcher",
		Params: []string{"url"},
		Source: `
local Fetcher = {}
function Fetcher:call(url)
	return http.get(url)
end
`,
	}, false)
	ve := requireValidationError(t, err)
	require.Len(t, ve.Violations, 1)
	assert.Contains(t, ve.Violations[0].Reason, `undefined name "http"`)
	assert.Equal(t, "method call", ve.Violations[0].Where)
	assert.Equal(t, 4, ve.Violations[0].Line)
}

func TestValidateTool_NonLiteralAttribute(t *testing.T) {
	err := validateSource(ToolDefinition{
		Name: "Clock",
		Source: `
local Clock = {}
Clock.started = now()
`,
	}, false)
	ve := requireValidationError(t, err)
	require.NotEmpty(t, ve.Violations)
	assert.Contains(t, ve.Violations[0].Reason, "must be literals")
	assert.Equal(t, "attribute Clock.started", ve.Violations[0].Where)
}

func TestValidateTool_LiteralTableAttributeAllowed(t *testing.T) {
	err := validateSource(ToolDefinition{
		Name: "Config",
		Source: `
local Config = {}
Config.limits = { max = 10, tags = { "a", "b" }, nested = { on = true } }
`,
	}, false)
	assert.NoError(t, err)
}

func TestValidateTool_ConstructorWithParameters(t *testing.T) {
	err := validateSource(ToolDefinition{
		Name: "Keyed",
		Source: `
local Keyed = {}
function Keyed.new(api_key)
	return api_key
end
`,
	}, false)
	ve := requireValidationError(t, err)
	require.NotEmpty(t, ve.Violations)
	assert.Equal(t, "method new", ve.Violations[0].Where)
	assert.Contains(t, ve.Violations[0].Reason, "no parameters beyond the receiver")
	assert.Contains(t, ve.Violations[0].Reason, "api_key")
}

func TestValidateTool_ConstructorSelfOnlyAllowed(t *testing.T) {
	err := validateSource(ToolDefinition{
		Name: "Plain",
		Source: `
local Plain = {}
function Plain.new(self)
	return self
end
`,
	}, false)
	assert.NoError(t, err)
}

func TestValidateTool_ParamMismatch(t *testing.T) {
	err := validateSource(ToolDefinition{
		Name:   "Search",
		Params: []string{"query"},
		Source: `
local Search = {}
function Search:call(query, limit)
	return query, limit
end
`,
	}, false)
	ve := requireValidationError(t, err)
	require.NotEmpty(t, ve.Violations)
	assert.Contains(t, ve.Violations[0].Reason, "(query)")
	assert.Contains(t, ve.Violations[0].Reason, "(query, limit)")
}

func TestValidateTool_ImportChecking(t *testing.T) {
	source := `
local Net = {}
function Net:call(host)
	local socket = require("socket")
	return socket, host
end
`
	def := ToolDefinition{Name: "Net", Params: []string{"host"}, Source: source}

	ve := requireValidationError(t, validateSource(def, true))
	require.NotEmpty(t, ve.Violations)
	assert.Contains(t, ve.Violations[0].Reason, `"socket"`)
	assert.Contains(t, ve.Violations[0].Reason, "json, math, string, table")

	// the same definition passes when import checking is off
	assert.NoError(t, validateSource(def, false))
}

func TestValidateTool_AuthorizedImportAccepted(t *testing.T) {
	err := validateSource(ToolDefinition{
		Name:   "Enc",
		Params: []string{"value"},
		Source: `
local Enc = {}
function Enc:call(value)
	return require("json").encode(value)
end
`,
	}, true)
	assert.NoError(t, err)
}

func TestValidateTool_LocalsAndLoopsResolve(t *testing.T) {
	err := validateSource(ToolDefinition{
		Name:   "Summer",
		Params: []string{"items"},
		Source: `
local Summer = {}
function Summer:call(items)
	local total = 0
	for i, v in ipairs(items) do
		total = total + v
	end
	for n = 1, 3 do
		total = total + n
	end
	return total
end
`,
	}, false)
	assert.NoError(t, err)
}

func TestValidateTool_MultipleViolationsReported(t *testing.T) {
	err := validateSource(ToolDefinition{
		Name: "Messy",
		Source: `
local Messy = {}
Messy.conn = connect()
function Messy.new(cfg)
	return cfg
end
function Messy:call()
	return undefined_helper()
end
`,
	}, false)
	ve := requireValidationError(t, err)
	assert.GreaterOrEqual(t, len(ve.Violations), 3)

	report := ve.Error()
	assert.Contains(t, report, `tool "Messy" failed validation:`)
	assert.Contains(t, report, "attribute Messy.conn")
	assert.Contains(t, report, "method new")
	assert.Contains(t, report, "undefined_helper")
}

func requireValidationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok, "expected *ValidationError, got %T", err)
	return ve
}
