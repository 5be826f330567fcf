package log

type Options struct {
	//write info to stdout and warn+ to stderr
	stdOutput bool
	//the optional value is JsonOutputEncoder ConsoleOutputEncoder
	outputEncoder OutputEncoder
	//the optional value is DebugLevel InfoLevel WarnLevel ErrorLevel FatalLevel
	level Level
	//report caller, disabled when nil
	callerEncoder CallerEncoder
	levelEncoder  LevelEncoder
	//report warn level stack trace
	stacktrace bool
	timeLayout string
	//root logger name
	name string
}

func (o *Options) WithStdOutput(stdOutput bool) *Options {
	o.stdOutput = stdOutput
	return o
}

func (o *Options) WithStacktrace(stacktrace bool) *Options {
	o.stacktrace = stacktrace
	return o
}

func (o *Options) WithTimeLayout(timeLayout string) *Options {
	o.timeLayout = timeLayout
	return o
}

func (o *Options) WithOutputEncoder(outputEncoder OutputEncoder) *Options {
	o.outputEncoder = outputEncoder
	return o
}

func (o *Options) WithLevel(level Level) *Options {
	o.level = level
	return o
}

func (o *Options) WithCallerEncoder(callerEncoder CallerEncoder) *Options {
	o.callerEncoder = callerEncoder
	return o
}

func (o *Options) WithLevelEncoder(encoder LevelEncoder) *Options {
	o.levelEncoder = encoder
	return o
}

func (o *Options) WithNamed(name string) *Options {
	o.name = name
	return o
}

func DefaultOptions() *Options {
	return &Options{
		level:         InfoLevel,
		timeLayout:    "02/Jan/2006:15:04:05 -0700",
		levelEncoder:  BracketLevelEncoder,
		outputEncoder: JsonOutputEncoder,
		stdOutput:     true,
	}
}
