package scene_object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func quadMesh() model.StaticMesh {
	return model.NewStaticMesh(model.WithVertices([]model.GPUVertex{
		{Position: [3]float32{-1, 0, 0}},
		{Position: [3]float32{1, 0, 0}},
	}), model.WithIndices([]uint32{0, 1, 0}))
}

func TestDefaults(t *testing.T) {
	a := NewSceneObject()
	b := NewSceneObject()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.True(t, a.Enabled())
	assert.False(t, a.Renderable())
	assert.Equal(t, common.Vec3{1, 1, 1}, a.Scale())
	assert.Equal(t, common.BoundingSphere{}, a.BoundingSphere())

	c := NewSceneObject(WithID(7), WithEnabled(false))
	assert.Equal(t, uint64(7), c.ID())
	assert.False(t, c.Enabled())
}

func TestSameTypeIsMaterialIdentity(t *testing.T) {
	shared := material.NewMaterial()
	a := NewSceneObject(WithMaterial(shared))
	b := NewSceneObject(WithMaterial(shared), WithMesh(quadMesh()))
	c := NewSceneObject(WithMaterial(material.NewMaterial()))
	none := NewSceneObject()

	assert.True(t, a.SameType(b))
	assert.False(t, a.SameType(c))
	assert.False(t, none.SameType(NewSceneObject()))
	assert.False(t, a.SameType(nil))
}

func TestTransformCachesPositionAndScale(t *testing.T) {
	o := NewSceneObject(WithMesh(quadMesh()), WithMaterial(material.NewMaterial()))
	o.SetTransform(common.TRS(common.Vec3{4, 5, 6}, [4]float32{0, 0, 0, 1}, common.Vec3{2, 2, 2}))

	assert.Equal(t, common.Vec3{4, 5, 6}, o.Position())
	assert.Equal(t, common.Vec3{2, 2, 2}, o.Scale())

	s := o.BoundingSphere()
	assert.Equal(t, common.Vec3{4, 5, 6}, s.Center)
	assert.InDelta(t, 2*math32.Sqrt(3), s.Radius, 1e-5)
	assert.True(t, o.Renderable())
}

func TestIsVisible(t *testing.T) {
	o := NewSceneObject(WithMesh(quadMesh()), WithPosition(0, 0, -10))
	f := common.Frustum{
		Near:   common.Vec3{0, 0, -1},
		Top:    common.Vec3{0, -1, -1}.Normalize(),
		Bottom: common.Vec3{0, 1, -1}.Normalize(),
		Left:   common.Vec3{1, 0, -1}.Normalize(),
		Right:  common.Vec3{-1, 0, -1}.Normalize(),
	}
	assert.True(t, o.IsVisible(common.Vec3{}, f))

	o.SetTransform(common.Translation(common.Vec3{0, 0, 10}))
	assert.False(t, o.IsVisible(common.Vec3{}, f))
}
