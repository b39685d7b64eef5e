package schedule

import "sync"

// FakeTimer creates tasks that never fire on their own. Tests fire them explicitly.
type FakeTimer struct {
	mu    sync.Mutex
	tasks []*FakeTask
}

func NewFakeTimer() *FakeTimer {
	return &FakeTimer{}
}

func (f *FakeTimer) NewTask(expr string, fn func()) (Task, error) {
	if _, err := Parse(expr); err != nil {
		return nil, err
	}
	task := &FakeTask{Expression: expr, fn: fn}
	f.mu.Lock()
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()
	return task, nil
}

// Tasks returns every task created so far, oldest first
func (f *FakeTimer) Tasks() []*FakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeTask, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Last returns the most recently created task, or nil
func (f *FakeTimer) Last() *FakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tasks) == 0 {
		return nil
	}
	return f.tasks[len(f.tasks)-1]
}

// ActiveEntries counts started tasks that have not been stopped or destroyed
func (f *FakeTimer) ActiveEntries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, task := range f.tasks {
		if task.Active() {
			n++
		}
	}
	return n
}

type FakeTask struct {
	Expression string

	mu        sync.Mutex
	fn        func()
	active    bool
	destroyed bool
}

func (t *FakeTask) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.destroyed {
		t.active = true
	}
}

func (t *FakeTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
}

func (t *FakeTask) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
	t.destroyed = true
}

func (t *FakeTask) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *FakeTask) Destroyed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destroyed
}

// Fire runs the callback as the timer would on a tick. Inactive tasks do nothing.
func (t *FakeTask) Fire() bool {
	t.mu.Lock()
	active, fn := t.active, t.fn
	t.mu.Unlock()
	if !active {
		return false
	}
	fn()
	return true
}
