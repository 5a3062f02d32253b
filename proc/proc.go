// Package proc 记录推理服务和本进程的运行状态
package proc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"github.com/xyzj/cherrybot/json"
	"github.com/xyzj/cherrybot/llms"
	"github.com/xyzj/cherrybot/logger"
)

// Prober reports the state of the inference backend
type Prober interface {
	Status(ctx context.Context) (*llms.BackendStatus, error)
}

type procStatus struct {
	Memrss uint64  `json:"rss"`
	Cpup   float32 `json:"cpu"`
	Memp   float32 `json:"mem"`
	Ofd    int32   `json:"ofd"`
}

// Status one sample
type Status struct {
	Backend  llms.BackendStatus `json:"backend"`
	Banner   string             `json:"banner"`
	Proc     procStatus         `json:"proc"`
	CPUs     int                `json:"cpus"`
	MemTotal uint64             `json:"mem_total"`
	MemUsed  float64            `json:"mem_used"`
	Dt       int64              `json:"dt"`
}

func (s *Status) String() string {
	return fmt.Sprintf("%s; cpu: %.2f%%; mem: %.2f%%; rss: %s", s.Banner, s.Proc.Cpup, s.Proc.Memp, formatFileSize(s.Proc.Memrss))
}

func (s *Status) JSON() string {
	js, err := json.MarshalToString(s)
	if err != nil {
		return ""
	}
	return js
}

// Banner 和原来的提示一致，显示模型在 GPU 还是 CPU 上运行
func Banner(b *llms.BackendStatus) string {
	switch {
	case b == nil || !b.Online:
		return "Inference backend is offline"
	case b.GPU:
		return "Using GPU"
	case len(b.Models) == 0:
		return "No model loaded"
	}
	return "Running on CPU"
}

type RecordOpt struct {
	Logg    logger.Logger
	Backend Prober
	Timer   time.Duration
	Keep    int // 保留的采样数
	Name    string
}

type Recorder struct {
	locker  sync.RWMutex
	last    *Status
	records []*Status
	plocker sync.Mutex
	proce   *process.Process
	sched   gocron.Scheduler
	opt     *RecordOpt
}

// StartRecord 按 Timer 周期采样，启动时立即采样一次
func StartRecord(opt *RecordOpt) (*Recorder, error) {
	if opt == nil {
		opt = &RecordOpt{}
	}
	if opt.Logg == nil {
		opt.Logg = logger.NewNilLogger()
	}
	if opt.Timer < time.Second {
		opt.Timer = time.Minute
	}
	if opt.Keep < 1 {
		opt.Keep = 1440
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(err, "create scheduler")
	}
	r := &Recorder{
		opt:     opt,
		last:    &Status{Banner: Banner(nil)},
		records: make([]*Status, 0, opt.Keep),
		sched:   s,
	}
	c := 0
	_, err = s.NewJob(
		gocron.DurationJob(opt.Timer),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), opt.Timer)
			defer cancel()
			st := r.Refresh(ctx)
			if c%30 == 0 {
				opt.Logg.Info("[PROC] " + st.String())
			}
			c++
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		s.Shutdown()
		return nil, errors.Wrap(err, "create status job")
	}
	s.Start()
	return r, nil
}

// Refresh 立即采样并记录
func (r *Recorder) Refresh(ctx context.Context) *Status {
	st := &Status{Dt: time.Now().Unix()}
	if r.opt.Backend != nil {
		b, err := r.opt.Backend.Status(ctx)
		if err != nil {
			r.opt.Logg.Debug("[PROC] backend status: " + err.Error())
		}
		if b != nil {
			st.Backend = *b
		}
	}
	st.Banner = Banner(&st.Backend)
	st.CPUs, _ = cpu.Counts(true)
	if vm, err := mem.VirtualMemory(); err == nil {
		st.MemTotal = vm.Total
		st.MemUsed = vm.UsedPercent
	}
	r.sampleProc(&st.Proc)

	r.locker.Lock()
	r.last = st
	if len(r.records) >= r.opt.Keep {
		r.records = append(r.records[:0], r.records[1:]...)
	}
	r.records = append(r.records, st)
	r.locker.Unlock()
	return st
}

func (r *Recorder) sampleProc(ps *procStatus) {
	r.plocker.Lock()
	defer r.plocker.Unlock()
	if r.proce == nil {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			r.opt.Logg.Error("[PROC] " + err.Error())
			return
		}
		r.proce = p
	}
	cp, _ := r.proce.CPUPercent()
	ps.Cpup = float32(cp)
	ps.Memp, _ = r.proce.MemoryPercent()
	ps.Ofd, _ = r.proce.NumFDs()
	if memi, _ := r.proce.MemoryInfo(); memi != nil {
		ps.Memrss = memi.RSS
	}
}

func (r *Recorder) Last() *Status {
	r.locker.RLock()
	defer r.locker.RUnlock()
	x := *r.last
	return &x
}

func (r *Recorder) LastString() string {
	return r.Last().String()
}

// All samples oldest first
func (r *Recorder) All() []*Status {
	r.locker.RLock()
	defer r.locker.RUnlock()
	x := make([]*Status, len(r.records))
	copy(x, r.records)
	return x
}

func (r *Recorder) Stop() error {
	return r.sched.Shutdown()
}

// BuildLines 采样记录的折线图页面
func (r *Recorder) BuildLines(width string) []byte {
	var nametail string
	if r.opt.Name != "" {
		nametail = " (" + r.opt.Name + ")"
	}
	if width == "" {
		width = "1200px"
	}
	js := r.All()
	l := len(js)
	x := make([]string, 0, l)
	cpup := make([]opts.LineData, 0, l)
	memp := make([]opts.LineData, 0, l)
	rss := make([]opts.LineData, 0, l)
	online := make([]opts.LineData, 0, l)
	for _, v := range js {
		x = append(x, time.Unix(v.Dt, 0).Format("01-02 15:04:05"))
		cpup = append(cpup, opts.LineData{Name: fmt.Sprintf("%.2f%%", v.Proc.Cpup), Value: v.Proc.Cpup, Symbol: "circle"})
		memp = append(memp, opts.LineData{Name: fmt.Sprintf("%.2f%%", v.MemUsed), Value: v.MemUsed, Symbol: "circle"})
		rss = append(rss, opts.LineData{Name: formatFileSize(v.Proc.Memrss), Value: v.Proc.Memrss / 1024 / 1024, Symbol: "circle"})
		up := 0
		if v.Backend.Online {
			up = 1
		}
		online = append(online, opts.LineData{Name: v.Banner, Value: up, Symbol: "circle"})
	}
	lineUse := charts.NewLine()
	lineUse.SetGlobalOptions(lineGOpts("CPU & MEM Use"+nametail, width, "{value} %")...)
	lineUse.SetXAxis(x)
	lineUse.SetSeriesOptions(lineSOpts()...)
	lineUse.AddSeries("process cpu", cpup)
	lineUse.AddSeries("host mem", memp)

	lineRss := charts.NewLine()
	lineRss.SetGlobalOptions(lineGOpts("Resident Set Size"+nametail, width, "{value} MB")...)
	lineRss.SetXAxis(x)
	lineRss.SetSeriesOptions(lineSOpts()...)
	lineRss.AddSeries("rss", rss)

	lineBackend := charts.NewLine()
	lineBackend.SetGlobalOptions(lineGOpts("Inference Backend Online"+nametail, width, "{value}")...)
	lineBackend.SetXAxis(x)
	lineBackend.AddSeries("online", online)

	a := components.NewPage()
	a.PageTitle = "Cherry Bot Status" + nametail
	a.AddCharts(lineUse, lineRss, lineBackend)
	b := &bytes.Buffer{}
	if err := a.Render(b); err != nil {
		r.opt.Logg.Error("[PROC] render chart: " + err.Error())
	}
	return b.Bytes()
}

func lineGOpts(name, width, yformatter string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithAnimation(false),
		charts.WithTitleOpts(opts.Title{
			Title: name,
			Left:  "10%",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger: "axis",
			Show:    opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithInitializationOpts(opts.Initialization{
			Width:  width,
			Height: "400px",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{
				Show:      opts.Bool(true),
				Formatter: opts.FuncOpts(yformatter),
			},
		}),
	}
}

func lineSOpts() []charts.SeriesOpts {
	return []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{
			Smooth: opts.Bool(true),
		}),
		charts.WithLineStyleOpts(opts.LineStyle{
			Width: 2,
		}),
	}
}

func formatFileSize(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
