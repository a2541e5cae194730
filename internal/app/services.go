package app

// Services bundles every service built over one set of dependencies, so
// they share the recorder, the status writer and the reconciler.
type Services struct {
	Projects   *ProjectService
	WorkItems  *WorkItemService
	Boards     *BoardService
	Sprints    *SprintService
	Bugs       *BugService
	Reconciler *Reconciler
}

// New builds all services from d.
func New(d Deps) *Services {
	c := newCore(d)
	r := newReconciler(c)
	w := newStatusWriter(c, r)

	return &Services{
		Projects:   &ProjectService{core: c},
		WorkItems:  newWorkItemService(c, w, r),
		Boards:     newBoardService(c, w),
		Sprints:    newSprintService(c, w),
		Bugs:       newBugService(c, newBridge(c, w)),
		Reconciler: r,
	}
}
