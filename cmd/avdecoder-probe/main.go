package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/avdecoder"
	"github.com/xaionaro-go/avdecoder/decoder/container/libav"
	"github.com/xaionaro-go/avdecoder/types"
	"github.com/xaionaro-go/observability"
	"gopkg.in/yaml.v3"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [options] <file>\n", os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	optionsFile := pflag.String("options", "", "a YAML file with the decoder options")
	customOptions := pflag.StringArrayP("option", "o", nil, "a custom option as key=value; may be repeated")
	gpuIndex := pflag.Int("gpu", -1, "decode on the N-th GPU; negative means on the CPU")
	maxFrames := pflag.Int("frames", 0, "stop after this many frames; zero means read everything")
	seekUS := pflag.Int64("seek-us", -1, "seek to this timestamp (in microseconds) before reading")
	dumpFirst := pflag.Bool("dump-first-frame", false, "dump the first video frame")
	pflag.Parse()
	if len(pflag.Args()) != 1 {
		pflag.Usage()
		os.Exit(1)
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}
	libav.SetupLogging(ctx, l.Level())

	opts, err := loadOptions(*optionsFile, *customOptions, *gpuIndex)
	if err != nil {
		l.Fatal(err)
	}

	path := pflag.Arg(0)
	l.Debugf("opening '%s' with options %s", path, opts)
	d, err := avdecoder.OpenURL(ctx, path, opts)
	if err != nil {
		l.Fatal(err)
	}
	defer func() {
		if err := d.Close(ctx); err != nil {
			l.Error(err)
		}
	}()

	info, err := d.VideoInfo(ctx)
	if err != nil {
		l.Warnf("unable to get the video info: %v", err)
	}
	printInfo(d, info)

	if *seekUS >= 0 {
		ok, err := d.Seek(ctx, *seekUS)
		if err != nil {
			l.Fatal(err)
		}
		if !ok {
			l.Warnf("the backend cannot seek")
		}
	}

	if err := readFrames(ctx, d, *maxFrames, *dumpFirst); err != nil {
		l.Fatal(err)
	}
}

func loadOptions(
	path string,
	custom []string,
	gpuIndex int,
) (types.DecoderOptions, error) {
	var opts types.DecoderOptions
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return opts, fmt.Errorf("unable to open '%s': %w", path, err)
		}
		defer f.Close()
		opts, err = types.LoadDecoderOptions(f)
		if err != nil {
			return opts, err
		}
	}
	for _, kv := range custom {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return opts, fmt.Errorf("invalid custom option '%s', expected key=value", kv)
		}
		opts = opts.WithCustomOption(key, value)
	}
	if gpuIndex >= 0 {
		opts = opts.WithGPUIndex(gpuIndex)
	}
	return opts, nil
}

func printInfo(d *avdecoder.Decoder, info types.VideoInfo) {
	fmt.Printf("backend: %s\n", d.BackendName())
	b, err := yaml.Marshal(info)
	if err != nil {
		panic(err)
	}
	fmt.Print(string(b))
	fmt.Printf("duration: %s\n", info.Duration())
	fmt.Printf("bitrate: %sps\n", humanize.SI(info.BitrateMbps*1e6, "b"))
}

func readFrames(
	ctx context.Context,
	d *avdecoder.Decoder,
	maxFrames int,
	dumpFirst bool,
) error {
	startedAt := time.Now()
	r := avdecoder.StartReading(ctx, d, 4)
	defer r.Close(ctx)

	var (
		count      int
		videoBytes uint64
		dumped     bool
	)
	for f := range r.Frames() {
		count++
		if f.Kind == avdecoder.KindVideo {
			v := f.Video
			if dumpFirst && !dumped {
				dumped = true
				spew.Dump(v)
			}
			if !v.IsGPUResident() {
				if planes, err := v.CPUPlanes(ctx); err == nil {
					for _, p := range planes {
						videoBytes += uint64(len(p.Data))
					}
				}
			}
		}
		f.Release(ctx)
		if maxFrames > 0 && count >= maxFrames {
			break
		}
	}
	r.Close(ctx)

	err := <-r.Err()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}

	elapsed := time.Since(startedAt)
	stats := r.GetStats()
	fmt.Printf("frames: %d video, %d audio, %d other in %s (%.1f fps)\n",
		stats.Video, stats.Audio, stats.Other, elapsed, float64(stats.Video)/elapsed.Seconds())
	fmt.Printf("video data: %s, audio data: %s\n",
		humanize.Bytes(videoBytes), humanize.Bytes(stats.AudioBytes))
	fmt.Printf("decode latency: %s\n", time.Duration(stats.DecodeLatencyUS)*time.Microsecond)
	return nil
}
