package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client used for remote lookup tables.
var UserAgent = "Go-Cardology/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName        = "Go Cardology"
	AppID          = "com.github.tartampluch.go-cardology"
	KeyringService = "com.github.tartampluch.go-cardology"
	LogFileName    = "app.log"
	SQLiteFileName = "cardology.db"
	StateFileName  = "state.json"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for logs and persisted profiles.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	CmdRoot        = "go-cardology"
	CmdServe       = "serve"
	CmdReading     = "reading"
	CmdImport      = "import <file.vcf>"
	CmdCredentials = "credentials"
	CmdCredSet     = "set"

	FlagVersion   = "version"
	FlagDebug     = "debug"
	FlagBirthDate = "birthdate"
	FlagName      = "name"
	FlagToday     = "today"
	FlagUser      = "user"

	FlagDescVersion   = "Show application version and exit"
	FlagDescDebug     = "Enable debug logging to stdout"
	FlagDescBirthDate = "Birthdate (YYYY-MM-DD)"
	FlagDescName      = "Optional name attached to the reading"
	FlagDescToday     = "Override today's date (YYYY-MM-DD)"
	FlagDescUser      = "Username for the web table source"

	CmdDescRoot        = "Birth cards, yearly spreads and planetary periods"
	CmdDescServe       = "Run the HTTP API"
	CmdDescReading     = "Print the reading for a birthdate as JSON"
	CmdDescImport      = "Create profiles from the birthdays of a vCard file"
	CmdDescCredentials = "Manage credentials for the web table source"
	CmdDescCredSet     = "Store the web table source password in the system keyring"

	MsgVersionOutput  = "%s version %s (%s/%s)\n"
	MsgImportOutput   = "Imported %d profiles (%d skipped)\n"
	MsgPasswordPrompt = "Password: "
	MsgCredSaved      = "Credentials saved\n"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort       = "18081"
	DefaultBindAddr   = "127.0.0.1"
	DefaultLanguage   = "en"
	DefaultReplyDelay = 1 * time.Second

	StoreModeFile   = "file"
	StoreModeSQLite = "sqlite"
	StoreModeMemory = "memory"

	TablesModeEmbedded = "embedded"
	TablesModeLocal    = "local"
	TablesModeWeb      = "web"

	// PeriodLengthDays is the nominal length of one planetary period.
	PeriodLengthDays = 52

	// DayOrdinalMonthFactor approximates a day-of-year ordinal as month*31+day.
	DayOrdinalMonthFactor = 31
)

// SupportedLanguages defines the list of available coach languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Cards, Positions & Planets
// -----------------------------------------------------------------------------

const (
	UnknownCardSymbol  = "Unknown"
	UnknownCardName    = "Unknown Card"
	CardNone           = "None"
	PlaceholderCard    = "unknown"
	FallbackActivation = "No specific activation found for this card."

	PosMercury     = "Mercury"
	PosVenus       = "Venus"
	PosMars        = "Mars"
	PosJupiter     = "Jupiter"
	PosSaturn      = "Saturn"
	PosUranus      = "Uranus"
	PosNeptune     = "Neptune"
	PosLongRange   = "Long Range"
	PosPluto       = "Pluto"
	PosResult      = "Result"
	PosSupport     = "Support"
	PosDevelopment = "Development"
)

// PlanetKeys lists the planetary period table keys in cycle order.
var PlanetKeys = []string{"mercury", "venus", "mars", "jupiter", "saturn", "uranus", "neptune"}

// -----------------------------------------------------------------------------
// Lookup Tables
// -----------------------------------------------------------------------------

const (
	TableBirthCards = "birthdateToCard"
	TableForecasts  = "yearlyForecasts"
	TablePeriods    = "planetaryPeriods"
	TableActivities = "cardToActivities"
	TablesEmbedDir  = "tables"

	ExtJSON = ".json"
	ExtYAML = ".yaml"
	ExtYML  = ".yml"
	ExtVCF  = ".vcf"
	ExtICS  = ".ics"
)

// TableExtensions lists the accepted table file extensions in lookup order.
var TableExtensions = []string{ExtJSON, ExtYAML, ExtYML}

// -----------------------------------------------------------------------------
// Persistence
// -----------------------------------------------------------------------------

const (
	StorageKeyProfiles      = "mdbc_saved_profiles"
	StorageKeyConversations = "mdbc_conversations"

	RoleUser      = "user"
	RoleAssistant = "assistant"

	SQLiteDriver = "sqlite"
	TempSuffix   = ".tmp"
)

// -----------------------------------------------------------------------------
// Coach
// -----------------------------------------------------------------------------

const (
	PersonaAssistant = "assistant"
	PersonaCoach     = "coach"
	DefaultPersona   = PersonaAssistant
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyAssistantGreeting = "assistant_greeting"
	TKeyAssistantMeaning  = "assistant_meaning"
	TKeyAssistantForecast = "assistant_forecast"
	TKeyAssistantPlanets  = "assistant_planets"
	TKeyAssistantDefault  = "assistant_default"

	TKeyCoachGreeting  = "coach_greeting"
	TKeyCoachMoney     = "coach_money"
	TKeyCoachMarketing = "coach_marketing"
	TKeyCoachScale     = "coach_scale"
	TKeyCoachStress    = "coach_stress"
	TKeyCoachDefault   = "coach_default"

	TKeyConversationTitle = "conversation_title" // Requires Date
	TKeyFormatDate        = "format_date_short"
	TKeyEvtPeriod         = "event_period"   // Requires Planet, Card
	TKeyEvtBirthday       = "event_birthday" // Requires Name, Age
	TKeyBirthCardNoun     = "birth_card_noun"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Go Cardology//Engine//EN"
	ICalCalName = "Planetary Periods"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"
	ICalDomain  = "gocardology"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDescription = "DESCRIPTION"
	PropDTStart     = "DTSTART"
	PropDTEnd       = "DTEND"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	VCardBDAY = "BDAY"
	VCardFN   = "FN"
	VCardN    = "N"

	DefaultICalRefresh = 24 * time.Hour

	UIDBirthday  = "birthday"
	FormatUID    = "%s-%s-%d@%s"
	FormatUIDKey = "%s|%s"
)

// -----------------------------------------------------------------------------
// Data Formats & Limits
// -----------------------------------------------------------------------------

const (
	// Date layouts accepted for birthdates (API, CLI and vCard BDAY fields).
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	// DateFormatMonthDay renders the M/D form used by planetary periods.
	DateFormatMonthDay = "1/2"

	// DateFormatTitle matches the short US locale date of generated titles.
	DateFormatTitle = "1/2/2006"

	FormatDateKey = "%s %d"
	UIDHashLength = 8

	MinPort = 1
	MaxPort = 65535

	MaxHTTPResponseSize = 16 * 1024 * 1024 // 16MB
	MaxRequestBodySize  = 4 * 1024 * 1024  // 4MB
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout        = 30 * time.Second
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	SchemeHTTP         = "http"
	SchemeHTTPS        = "https"
	AddrSeparator      = ":"
	URLPathSeparator   = "/"
)

// -----------------------------------------------------------------------------
// HTTP Routes, Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	RouteAPI           = "/api"
	RouteHealth        = "/health"
	RouteReadings      = "/readings"
	RouteProfiles      = "/profiles"
	RouteImport        = "/import"
	RouteProfile       = "/{profileID}"
	RouteReading       = "/reading"
	RouteConversations = "/conversations"
	RouteConversation  = "/{conversationID}"
	RouteChat          = "/chat"
	RouteCalendar      = "/calendar/{profileID}.ics"

	ParamProfileID      = "profileID"
	ParamConversationID = "conversationID"

	HeaderContentType  = "Content-Type"
	HeaderCacheControl = "Cache-Control"
	HeaderETag         = "ETag"
	HeaderAccept       = "Accept"
	HeaderXContentType = "X-Content-Type-Options"
	HeaderUserAgent    = "User-Agent"
	HeaderIfNoneMatch  = "If-None-Match"

	MimeJSON            = "application/json"
	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`

	HealthStatusOK = "ok"

	// StatusClientClosedRequest is the nginx convention for requests the client abandoned.
	StatusClientClosedRequest = 499
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty    = "configuration error: tables path is empty"
	ErrWebURLEmpty       = "configuration error: tables URL is empty"
	ErrFetcherMissing    = "internal error: network fetcher is not initialized"
	ErrModeUnsupport     = "configuration error: unsupported tables source"
	ErrStoreUnsupport    = "configuration error: unsupported store mode"
	ErrDataDirEmpty      = "configuration error: data directory is empty"
	ErrLanguageUnsupport = "configuration error: unsupported language"
	ErrReplyDelay        = "configuration error: reply delay must not be negative"
	ErrEnvParse          = "failed to parse environment"
	ErrServerStartup     = "server startup failed"
	ErrServerShutdown    = "server shutdown failed"
	ErrPortRequired      = "server port is required"
	ErrPortNumber        = "server port must be a number"
	ErrPortRange         = "server port must be between 1 and 65535"
	ErrInvalidURL        = "invalid URL structure"
	ErrProtocol          = "unsupported protocol scheme (http/https only)"
	ErrTableOpen         = "failed to open lookup table"
	ErrTableDecode       = "failed to decode lookup table"
	ErrTableMissing      = "lookup table not found"
	ErrVCardParse        = "failed to parse vCard stream"
	ErrICalEncode        = "failed to encode iCalendar data"
	ErrDateParse         = "unable to parse date"
	ErrDateNoYear        = "birthdate has no year"
	ErrNameRequired      = "name is required"
	ErrBirthDateRequired = "birthdate is required"
	ErrQuestionRequired  = "question is required"
	ErrTitleRequired     = "title is required"
	ErrInvalidInput      = "invalid input"
	ErrPersonaUnknown    = "unknown persona"
	ErrSessionBusy       = "a reply is already pending"
	ErrSessionClosed     = "chat session closed"
	ErrProfileNotFound   = "profile not found"
	ErrConvNotFound      = "conversation not found"
	ErrPersistLoad       = "failed to load persisted state"
	ErrPersistSave       = "failed to persist state"
	ErrPersistEncode     = "failed to encode persisted state"
	ErrPersistNotFound   = "persisted key not found"
	ErrPersistNotJSON    = "persisted blob is not valid JSON"
	ErrSQLiteOpen        = "failed to open sqlite database"
	ErrSQLiteSchema      = "failed to initialize sqlite schema"
	ErrIDGenerate        = "failed to generate identifier"
	ErrLogFile           = "failed to open log file"
	ErrCacheDir          = "could not determine user cache dir"
	ErrConfigDir         = "could not determine user config dir"
	ErrOpenInput         = "failed to open input file"
	ErrPasswordEmpty     = "password is empty"
	ErrCreateDir         = "could not create app directory"
	ErrAppFailed         = "application failed unexpectedly"
	ErrWriteResp         = "failed to write response body"
	ErrLocalesAccess     = "failed to access embedded locales"
	ErrLocaleLoad        = "failed to load locale file"
	ErrKeyringSet        = "failed to store credentials in keyring"
	ErrReadPassword      = "failed to read password"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgBadRequest  = "Invalid request body"
	HTTPMsgNotFound    = "Not Found"
	HTTPMsgInternalErr = "Internal Server Error"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackName              = "Unknown"
	FallbackConversationTitle = "Conversation %s"
	FallbackPeriodSummary     = "%s period: %s"
	FallbackBirthdaySummary   = "Birthday: %s (%d)"

	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgEnvFileMissing = "No .env file found, relying on environment variables"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgTablesLoading  = "Loading lookup tables"
	MsgTablesLoaded   = "Lookup tables loaded"
	MsgTableOpened    = "Lookup table opened"
	MsgNoBirthCard    = "No birth card found for date"
	MsgNoForecast     = "No forecast found for card and age"
	MsgNoPeriods      = "No planetary periods found for date"
	MsgBadMonthDay    = "Skipping malformed period date"
	MsgStoreLoaded    = "Store loaded"
	MsgStoreEmpty     = "No persisted state, starting empty"
	MsgStoreCorrupt   = "Persisted state unreadable, starting empty"
	MsgStoreOrphans   = "Dropping conversations of unknown profiles"
	MsgStateReset     = "State file unreadable, rewriting it from scratch"
	MsgProfileAdded   = "Profile added"
	MsgProfileDeleted = "Profile deleted"
	MsgConvSaved      = "Conversation saved"
	MsgConvDeleted    = "Conversation deleted"
	MsgConvRenamed    = "Conversation renamed"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping invalid date format"
	MsgSkippedNoYear  = "Skipping birthday without year"
	MsgImportDone     = "vCard import finished"
	MsgCalendarBuilt  = "Calendar generated"
	MsgReplyCancelled = "Reply cancelled"
	MsgReplySent      = "Reply generated"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgPassFail       = "Password retrieval failed (might be empty)"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgRequestFailed  = "Request failed"
	MsgRequestServed  = "Request served"
	MsgRequestAborted = "Request cancelled by client"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent    = "component"
	LogKeyError        = "error"
	LogKeyURL          = "url"
	LogKeyStatus       = "status_code"
	LogKeyFile         = "file"
	LogKeyLang         = "lang"
	LogKeyKey          = "key"
	LogKeyPort         = "port"
	LogKeyMode         = "mode"
	LogKeyTable        = "table"
	LogKeyDateKey      = "date_key"
	LogKeyCard         = "card"
	LogKeyAge          = "age"
	LogKeyValue        = "value"
	LogKeyName         = "name"
	LogKeyProfile      = "profile_id"
	LogKeyConversation = "conversation_id"
	LogKeyPersona      = "persona"
	LogKeyCount        = "count"
	LogKeySkipped      = "skipped"
	LogKeyProfiles     = "profiles"
	LogKeySizeBytes    = "size_bytes"
	LogKeyETag         = "etag"
	LogKeyDuration     = "duration_ms"
	LogKeyStats        = "stats"
	LogKeyBirthCards   = "birth_cards"
	LogKeyForecasts    = "forecast_cards"
	LogKeyPeriods      = "period_dates"
	LogKeyActivities   = "activities"
	LogKeyRequestID    = "request_id"
	LogKeyMethod       = "method"
	LogKeyPath         = "path"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain     = "main"
	CompConfig   = "config"
	CompEngine   = "engine"
	CompTables   = "tables"
	CompFetcher  = "fetcher"
	CompImporter = "importer"
	CompCalendar = "calendar"
	CompStore    = "store"
	CompCoach    = "coach"
	CompI18n     = "i18n"
	CompCore     = "core"
	CompServer   = "server"
)
