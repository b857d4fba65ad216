package verifier

// check is one independent verification step. A nil error means it passed.
type check func() error

// checkRunner 并发或顺序地执行一组检查，结果按入队下标返回
type checkRunner interface {
	run()
	enqueue(c check, i int)
	result() []error
}

func newCheckRunner(nworker, n int) checkRunner {
	if nworker <= 1 || n <= 1 {
		return newCheckPoolSync(n)
	}
	if nworker > n {
		nworker = n
	}
	return newCheckPool(nworker, n)
}

type checkPool struct {
	nworker int

	inc  chan *checkArg
	resc chan *checkRes
	resq chan struct{}
	done chan struct{}

	res []error
}

type checkArg struct {
	c check
	i int
}

type checkRes struct {
	err error
	i   int
}

func newCheckPool(nworker, n int) *checkPool {
	return &checkPool{
		nworker: nworker,
		inc:     make(chan *checkArg, nworker),
		resc:    make(chan *checkRes, nworker),
		resq:    make(chan struct{}),
		done:    make(chan struct{}),
		res:     make([]error, n),
	}
}

func (cp *checkPool) run() {
	for i := 0; i < cp.nworker; i++ {
		go func() {
			for ca := range cp.inc {
				cp.resc <- &checkRes{ca.c(), ca.i}
			}
			cp.resq <- struct{}{}
		}()
	}

	go func() {
		for i := 0; i < cp.nworker; i++ {
			<-cp.resq
		}
		close(cp.resc)
	}()

	go func() {
		for r := range cp.resc {
			cp.res[r.i] = r.err
		}
		cp.done <- struct{}{}
	}()
}

func (cp *checkPool) enqueue(c check, i int) {
	cp.inc <- &checkArg{c, i}
}

func (cp *checkPool) result() []error {
	close(cp.inc)
	<-cp.done
	return cp.res
}

type checkPoolSync struct {
	res []error
}

func newCheckPoolSync(n int) *checkPoolSync {
	return &checkPoolSync{res: make([]error, n)}
}

func (cp *checkPoolSync) run() {
}

func (cp *checkPoolSync) enqueue(c check, i int) {
	cp.res[i] = c()
}

func (cp *checkPoolSync) result() []error {
	return cp.res
}
