package service

import (
	"errors"
	"sync"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/repository"
	"quant_bench_go/pkg/log"

	"gorm.io/gorm"
)

// CategoryTree 提供分类层级的闭包计算。
// 闭包 = 节点自身 + 沿子指针可达的全部后代（"自己是自己的零步后代"约定，
// 计数器依赖该约定把直接挂在查询节点上的引用算进去）。
// 设计目标：
//  1. 用显式的 BFS 遍历代替递归查询，算法与存储的查询语言解耦，可用假仓库单测。
//  2. 防御性环检测：存储被写坏出现环时报 ErrCorruptHierarchy，绝不死循环。
//  3. 闭包按节点缓存，任何分类的增删改都整体失效；脏闭包会悄悄多算或少算，
//     缓存正确性是硬性要求。
type CategoryTree interface {
	// Closure 返回以 id 为根的整棵子树的节点 id 集合（含 id 自身）。
	Closure(id uint) ([]uint, error)
	// Children 返回直接子节点，按创建顺序。
	Children(id uint) ([]model.Category, error)
	// AncestorChain 返回从节点到其根的路径（含节点自身）。
	AncestorChain(id uint) ([]uint, error)
	// Invalidate 清空闭包缓存。分类的创建/改父/删除之后必须调用。
	Invalidate()
}

type categoryTree struct {
	categoryRepo repository.CategoryRepository

	mu      sync.RWMutex
	closure map[uint][]uint
}

func NewCategoryTree(categoryRepo repository.CategoryRepository) CategoryTree {
	return &categoryTree{
		categoryRepo: categoryRepo,
		closure:      make(map[uint][]uint),
	}
}

func (t *categoryTree) Closure(id uint) ([]uint, error) {
	if t.categoryRepo == nil {
		return nil, ErrInternal
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}

	t.mu.RLock()
	cached, ok := t.closure[id]
	t.mu.RUnlock()
	if ok {
		// 缓存的切片对外只读，复制一份防止调用方改坏缓存。
		out := make([]uint, len(cached))
		copy(out, cached)
		return out, nil
	}

	ids, err := t.computeClosure(id)
	if err != nil {
		// 失败结果（含 ErrCorruptHierarchy）不进缓存。
		return nil, err
	}

	t.mu.Lock()
	t.closure[id] = ids
	t.mu.Unlock()

	out := make([]uint, len(ids))
	copy(out, ids)
	return out, nil
}

// computeClosure 从 id 出发沿"是谁的父节点"边做 BFS。
// 关键规则：
//  1. 起点必须存在，否则报 ErrCategoryNotFound。
//  2. 任何节点被第二次访问即说明存储里有环，报 ErrCorruptHierarchy。
func (t *categoryTree) computeClosure(id uint) ([]uint, error) {
	if _, err := t.categoryRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	visited := map[uint]struct{}{id: {}}
	order := []uint{id}
	queue := []uint{id}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := t.categoryRepo.FindChildren(current)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if _, seen := visited[child.ID]; seen {
				log.Errorf("category hierarchy cycle detected at node %d (reached again from %d)", child.ID, current)
				return nil, ErrCorruptHierarchy
			}
			visited[child.ID] = struct{}{}
			order = append(order, child.ID)
			queue = append(queue, child.ID)
		}
	}
	return order, nil
}

func (t *categoryTree) Children(id uint) ([]model.Category, error) {
	if t.categoryRepo == nil {
		return nil, ErrInternal
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}

	if _, err := t.categoryRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return t.categoryRepo.FindChildren(id)
}

// AncestorChain 沿 ParentID 向上走到根。
// 父指针指向不存在的节点（悬挂）或走回已访问节点（环）都算层级损坏。
func (t *categoryTree) AncestorChain(id uint) ([]uint, error) {
	if t.categoryRepo == nil {
		return nil, ErrInternal
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}

	current, err := t.categoryRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	visited := map[uint]struct{}{current.ID: {}}
	chain := []uint{current.ID}

	for current.ParentID != nil {
		parentID := *current.ParentID
		if _, seen := visited[parentID]; seen {
			log.Errorf("category hierarchy cycle detected walking up from node %d", id)
			return nil, ErrCorruptHierarchy
		}

		parent, err := t.categoryRepo.FindByID(parentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 悬挂父指针：父节点已不存在
				log.Errorf("category %d has dangling parent %d", current.ID, parentID)
				return nil, ErrCorruptHierarchy
			}
			return nil, err
		}

		visited[parent.ID] = struct{}{}
		chain = append(chain, parent.ID)
		current = parent
	}
	return chain, nil
}

func (t *categoryTree) Invalidate() {
	t.mu.Lock()
	t.closure = make(map[uint][]uint)
	t.mu.Unlock()
}
