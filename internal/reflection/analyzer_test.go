package reflection_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/junioryono/autoreg/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test types
type Database struct {
	ConnectionString string
}

type Logger interface {
	Log(msg string)
}

type ConsoleLogger struct{}

func (c *ConsoleLogger) Log(msg string) {}

type UserService struct {
	DB     *Database
	Logger Logger
}

// Test constructors
func NewDatabase(connStr string) *Database {
	return &Database{ConnectionString: connStr}
}

func NewUserService(db *Database, logger Logger) *UserService {
	return &UserService{DB: db, Logger: logger}
}

func NewUserServiceWithError(db *Database) (*UserService, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	return &UserService{DB: db}, nil
}

// In parameter object
type ServiceParams struct {
	reflection.In

	Database *Database
	Logger   Logger    `optional:"true"`
	Cache    *Database `name:"cache"`
	Ignored  string    `inject:"-"`
	internal string
}

func NewServiceWithParams(params ServiceParams) *UserService {
	return &UserService{
		DB:     params.Database,
		Logger: params.Logger,
	}
}

// Tagged injectable struct
type TaggedService struct {
	DB       *Database `inject:""`
	Logger   Logger    `inject:"optional"`
	Replica  *Database `inject:"" name:"replica"`
	Skipped  *Database `inject:"-"`
	Untagged *Database
}

type UnexportedInjected struct {
	db *Database `inject:""`
}

func TestAnalyzer_SimpleConstructor(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(NewDatabase)
	require.NoError(t, err, "Failed to analyze constructor")

	assert.False(t, info.IsParamObject, "Expected IsParamObject to be false")
	assert.False(t, info.HasErrorReturn, "Expected HasErrorReturn to be false")

	// Check parameters
	require.Len(t, info.Parameters, 1, "Expected 1 parameter")
	assert.Equal(t, reflect.TypeOf(""), info.Parameters[0].Type, "Expected string parameter type")

	// Check return
	assert.Equal(t, reflect.TypeOf((*Database)(nil)), info.ReturnType, "Expected *Database return type")
}

func TestAnalyzer_ConstructorWithMultipleParams(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(NewUserService)
	require.NoError(t, err, "Failed to analyze constructor")

	require.Len(t, info.Parameters, 2, "Expected 2 parameters")
	assert.Equal(t, reflect.TypeOf((*Database)(nil)), info.Parameters[0].Type, "Expected first parameter to be *Database")
	assert.Equal(t, reflect.TypeOf((*Logger)(nil)).Elem(), info.Parameters[1].Type, "Expected second parameter to be Logger interface")

	deps := info.Dependencies()
	require.Len(t, deps, 2, "Expected 2 dependencies")
	assert.Equal(t, 0, deps[0].Index)
	assert.Equal(t, 1, deps[1].Index)
}

func TestAnalyzer_ConstructorWithError(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(NewUserServiceWithError)
	require.NoError(t, err, "Failed to analyze constructor")

	assert.True(t, info.HasErrorReturn, "Expected HasErrorReturn to be true")
	assert.Equal(t, reflect.TypeOf((*UserService)(nil)), info.ReturnType)
}

func TestAnalyzer_ParamObject(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(NewServiceWithParams)
	require.NoError(t, err, "Failed to analyze constructor with param object")

	assert.True(t, info.IsParamObject, "Expected IsParamObject to be true")
	require.Len(t, info.Parameters, 3, "Expected 3 parameters from struct fields")

	byName := make(map[string]reflection.ParameterInfo)
	for _, p := range info.Parameters {
		byName[p.Name] = p
	}

	assert.False(t, byName["Database"].Optional, "Database should not be optional")
	assert.True(t, byName["Logger"].Optional, "Logger should be optional")
	assert.Equal(t, "cache", byName["Cache"].Key, "Cache should have key 'cache'")
	assert.NotContains(t, byName, "Ignored")
	assert.NotContains(t, byName, "internal")
}

func TestAnalyzer_AnalyzeStruct(t *testing.T) {
	analyzer := reflection.New()

	t.Run("tagged fields", func(t *testing.T) {
		info, err := analyzer.AnalyzeStruct(reflect.TypeOf(&TaggedService{}))
		require.NoError(t, err)

		assert.Equal(t, reflect.TypeOf(TaggedService{}), info.Type, "Pointer types are dereferenced")
		assert.False(t, info.EmbedsIn)
		require.Len(t, info.Fields, 3)

		assert.Equal(t, "DB", info.Fields[0].Name)
		assert.False(t, info.Fields[0].Optional)

		assert.Equal(t, "Logger", info.Fields[1].Name)
		assert.True(t, info.Fields[1].Optional)

		assert.Equal(t, "Replica", info.Fields[2].Name)
		assert.Equal(t, "replica", info.Fields[2].Key)
		assert.Equal(t, 2, info.Fields[2].Index)

		deps := info.Dependencies()
		require.Len(t, deps, 3)
		assert.Equal(t, "Replica", deps[2].FieldName)
		assert.Equal(t, "replica", deps[2].Key)
	})

	t.Run("embedded In", func(t *testing.T) {
		info, err := analyzer.AnalyzeStruct(reflect.TypeOf(ServiceParams{}))
		require.NoError(t, err)

		assert.True(t, info.EmbedsIn)
		assert.Len(t, info.Fields, 3)
	})

	t.Run("no injectable fields", func(t *testing.T) {
		info, err := analyzer.AnalyzeStruct(reflect.TypeOf(&Database{}))
		require.NoError(t, err)
		assert.Empty(t, info.Fields)
	})

	t.Run("unexported injected field", func(t *testing.T) {
		_, err := analyzer.AnalyzeStruct(reflect.TypeOf(UnexportedInjected{}))
		assert.ErrorIs(t, err, reflection.ErrUnexportedInjectedField)
	})

	t.Run("not a struct", func(t *testing.T) {
		_, err := analyzer.AnalyzeStruct(reflect.TypeOf(42))
		assert.ErrorIs(t, err, reflection.ErrNotStruct)

		_, err = analyzer.AnalyzeStruct(nil)
		assert.ErrorIs(t, err, reflection.ErrNotStruct)
	})
}

func TestAnalyzer_Caching(t *testing.T) {
	analyzer := reflection.New()

	// Analyze the same constructor twice
	info1, err := analyzer.Analyze(NewDatabase)
	require.NoError(t, err, "First analysis failed")

	info2, err := analyzer.Analyze(NewDatabase)
	require.NoError(t, err, "Second analysis failed")

	// Should return the same cached instance
	assert.Same(t, info1, info2, "Expected cached result to be returned")

	s1, err := analyzer.AnalyzeStruct(reflect.TypeOf(TaggedService{}))
	require.NoError(t, err)
	s2, err := analyzer.AnalyzeStruct(reflect.TypeOf(&TaggedService{}))
	require.NoError(t, err)
	assert.Same(t, s1, s2, "Struct and pointer share one analysis")

	// A separate analyzer keeps its own cache
	info3, err := reflection.New().Analyze(NewDatabase)
	require.NoError(t, err, "Third analysis failed")
	assert.NotSame(t, info1, info3, "Expected a fresh analysis from a new analyzer")
}

func TestAnalyzer_InvalidConstructors(t *testing.T) {
	analyzer := reflection.New()

	var nilFunc func() *Database

	tests := []struct {
		name        string
		constructor any
		wantErr     error
	}{
		{"nil", nil, reflection.ErrConstructorNil},
		{"nil func", nilFunc, reflection.ErrConstructorNil},
		{"not a function", &Database{}, reflection.ErrNotFunction},
		{"no return", func() {}, reflection.ErrNoReturn},
		{"too many returns", func() (*Database, *Database, error) { return nil, nil, nil }, reflection.ErrTooManyReturns},
		{"second return not error", func() (*Database, string) { return nil, "" }, reflection.ErrInvalidSecondReturn},
		{"error only", func() error { return nil }, reflection.ErrErrorOnlyReturn},
		{"variadic", func(...string) *Database { return nil }, reflection.ErrVariadicConstructor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyzer.Analyze(tt.constructor)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseFieldTags(t *testing.T) {
	tests := []struct {
		tag      reflect.StructTag
		expected reflection.TagInfo
	}{
		{``, reflection.TagInfo{}},
		{`inject:""`, reflection.TagInfo{Inject: true}},
		{`inject:"optional"`, reflection.TagInfo{Inject: true, Optional: true}},
		{`inject:"-"`, reflection.TagInfo{Ignore: true}},
		{`optional:"true"`, reflection.TagInfo{Optional: true}},
		{`optional:"false"`, reflection.TagInfo{}},
		{`inject:"" name:"primary"`, reflection.TagInfo{Inject: true, Name: "primary"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			assert.Equal(t, tt.expected, reflection.ParseFieldTags(tt.tag))
		})
	}
}

func TestAnalyzer_ConcurrentAnalysis(t *testing.T) {
	analyzer := reflection.New()

	const goroutines = 50
	results := make([]*reflection.ConstructorInfo, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := analyzer.Analyze(NewUserService)
			if err == nil {
				results[i] = info
			}
		}()
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Same(t, results[0], r, "All goroutines should observe one analysis")
	}
}
