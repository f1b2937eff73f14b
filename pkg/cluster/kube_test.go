package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/cutover/cutover/pkg/types"
)

func testManifest() Manifest {
	return BuildManifest(
		types.Environment{Name: "green", Namespace: "app-green"},
		types.ServiceSpec{
			Name:       "api",
			Image:      "registry.local/api:v2",
			Replicas:   2,
			Port:       8080,
			HealthPath: "/healthz",
			Tier:       types.TierApp,
		},
	)
}

func TestApplyCreatesDeployment(t *testing.T) {
	client := fake.NewSimpleClientset()
	k := NewKubeClusterWithClient(client)

	require.NoError(t, k.Apply(context.Background(), testManifest()))

	dep, err := client.AppsV1().Deployments("app-green").Get(context.Background(), "api", metav1.GetOptions{})
	require.NoError(t, err)

	assert.Equal(t, int32(2), *dep.Spec.Replicas)
	assert.Equal(t, "green", dep.Labels[types.SelectorEnvKey])
	assert.Equal(t, "api", dep.Labels["app"])

	container := dep.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "registry.local/api:v2", container.Image)
	require.NotNil(t, container.ReadinessProbe)
	assert.Equal(t, "/healthz", container.ReadinessProbe.HTTPGet.Path)
}

func TestApplyUpdatesExistingDeployment(t *testing.T) {
	client := fake.NewSimpleClientset()
	k := NewKubeClusterWithClient(client)

	manifest := testManifest()
	require.NoError(t, k.Apply(context.Background(), manifest))

	manifest.Image = "registry.local/api:v3"
	manifest.Replicas = 4
	require.NoError(t, k.Apply(context.Background(), manifest))

	deps, err := client.AppsV1().Deployments("app-green").List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	require.Len(t, deps.Items, 1, "update must not create a second workload")
	assert.Equal(t, "registry.local/api:v3", deps.Items[0].Spec.Template.Spec.Containers[0].Image)
	assert.Equal(t, int32(4), *deps.Items[0].Spec.Replicas)
}

func routerService(selector map[string]string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "app-router", Namespace: "default"},
		Spec:       corev1.ServiceSpec{Selector: selector},
	}
}

func TestGetSelector(t *testing.T) {
	client := fake.NewSimpleClientset(routerService(map[string]string{
		types.SelectorEnvKey: "blue",
	}))
	k := NewKubeClusterWithClient(client)

	selector, err := k.GetSelector(context.Background(), RouterRef{Name: "app-router", Namespace: "default"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{types.SelectorEnvKey: "blue"}, selector)
}

func TestGetSelectorMissingRouter(t *testing.T) {
	k := NewKubeClusterWithClient(fake.NewSimpleClientset())
	_, err := k.GetSelector(context.Background(), RouterRef{Name: "app-router", Namespace: "default"})
	require.Error(t, err)
}

func TestPatchSelectorRemovesStaleKeys(t *testing.T) {
	// Router mid-migration: the settle patch must drop the migration keys
	// in the same operation that flips the environment
	client := fake.NewSimpleClientset(routerService(map[string]string{
		types.SelectorEnvKey:    "blue",
		types.SelectorTargetKey: "green",
		types.SelectorWeightKey: "80",
	}))
	k := NewKubeClusterWithClient(client)
	router := RouterRef{Name: "app-router", Namespace: "default"}

	settled := types.RouterState{ActiveEnv: "green"}.Selector()
	require.NoError(t, k.PatchSelector(context.Background(), router, settled))

	selector, err := k.GetSelector(context.Background(), router)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{types.SelectorEnvKey: "green"}, selector)
}

func TestPatchSelectorWeightedSplit(t *testing.T) {
	client := fake.NewSimpleClientset(routerService(map[string]string{
		types.SelectorEnvKey: "blue",
	}))
	k := NewKubeClusterWithClient(client)
	router := RouterRef{Name: "app-router", Namespace: "default"}

	split := types.RouterState{ActiveEnv: "blue", MigrationTarget: "green", MigrationWeight: 20}.Selector()
	require.NoError(t, k.PatchSelector(context.Background(), router, split))

	selector, err := k.GetSelector(context.Background(), router)
	require.NoError(t, err)

	state, err := types.ParseRouterState(selector)
	require.NoError(t, err)
	assert.Equal(t, "green", state.MigrationTarget)
	assert.Equal(t, 20, state.MigrationWeight)
}

func TestGetReadiness(t *testing.T) {
	replicas := int32(2)
	labels := map[string]string{"app": "api", types.SelectorEnvKey: "green"}

	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "api", Namespace: "app-green", Labels: labels},
		Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
		Status:     appsv1.DeploymentStatus{ReadyReplicas: 1},
	}
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "api-7f9-x2x", Namespace: "app-green", Labels: labels},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{{
				State: corev1.ContainerState{
					Waiting: &corev1.ContainerStateWaiting{Reason: "CrashLoopBackOff"},
				},
			}},
		},
	}

	k := NewKubeClusterWithClient(fake.NewSimpleClientset(dep, pod))
	status, err := k.GetReadiness(context.Background(), "app-green", map[string]string{types.SelectorEnvKey: "green"})
	require.NoError(t, err)

	require.Len(t, status.Services, 1)
	svc := status.Services[0]
	assert.Equal(t, "api", svc.Service)
	assert.Equal(t, 1, svc.ReadyReplicas)
	assert.Equal(t, 2, svc.DesiredReplicas)
	require.Len(t, svc.FailureReasons, 1)
	assert.Contains(t, svc.FailureReasons[0], "CrashLoopBackOff")

	assert.False(t, status.AllReady())
	require.Len(t, status.Failed(), 1)
}

func TestGetReadinessIgnoresBenignWaiting(t *testing.T) {
	replicas := int32(1)
	labels := map[string]string{"app": "api", types.SelectorEnvKey: "green"}

	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "api", Namespace: "app-green", Labels: labels},
		Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
		Status:     appsv1.DeploymentStatus{ReadyReplicas: 0},
	}
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "api-7f9-aaa", Namespace: "app-green", Labels: labels},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{{
				State: corev1.ContainerState{
					Waiting: &corev1.ContainerStateWaiting{Reason: "ContainerCreating"},
				},
			}},
		},
	}

	k := NewKubeClusterWithClient(fake.NewSimpleClientset(dep, pod))
	status, err := k.GetReadiness(context.Background(), "app-green", map[string]string{types.SelectorEnvKey: "green"})
	require.NoError(t, err)

	// Still starting up is not a failure state
	assert.Empty(t, status.Failed())
	assert.False(t, status.AllReady())
}
